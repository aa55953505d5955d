package cli

import (
	"testing"
)

func TestParseArgs_ValidArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected Config
	}{
		{
			name: "デフォルト設定",
			args: []string{},
			expected: Config{
				LogLevel: "info",
			},
		},
		{
			name: "入力ファイル指定",
			args: []string{"music.xmi"},
			expected: Config{
				InputPath: "music.xmi",
				LogLevel:  "info",
			},
		},
		{
			name: "トラック指定",
			args: []string{"--track", "3", "music.xmi"},
			expected: Config{
				InputPath: "music.xmi",
				Track:     3,
				LogLevel:  "info",
			},
		},
		{
			name: "トラック指定（短縮形）",
			args: []string{"-n", "2", "music.xmi"},
			expected: Config{
				InputPath: "music.xmi",
				Track:     2,
				LogLevel:  "info",
			},
		},
		{
			name: "位置引数が先",
			args: []string{"music.xmi", "-o", "out.mid", "-n", "1"},
			expected: Config{
				InputPath:  "music.xmi",
				OutputPath: "out.mid",
				Track:      1,
				LogLevel:   "info",
			},
		},
		{
			name: "標準出力",
			args: []string{"-o", "-", "music.xmi"},
			expected: Config{
				InputPath:  "music.xmi",
				OutputPath: "-",
				LogLevel:   "info",
			},
		},
		{
			name: "ブール型フラグの後の位置引数",
			args: []string{"--all", "music.xmi", "--verify"},
			expected: Config{
				InputPath: "music.xmi",
				AllTracks: true,
				Verify:    true,
				LogLevel:  "info",
			},
		},
		{
			name: "一覧とダンプ",
			args: []string{"-list", "-dump", "music.xmi"},
			expected: Config{
				InputPath: "music.xmi",
				List:      true,
				Dump:      true,
				LogLevel:  "info",
			},
		},
		{
			name: "ログレベル指定（短縮形）",
			args: []string{"-l", "error"},
			expected: Config{
				LogLevel: "error",
			},
		},
		{
			name: "値を=で指定",
			args: []string{"--log-level=debug", "music.xmi"},
			expected: Config{
				InputPath: "music.xmi",
				LogLevel:  "debug",
			},
		},
		{
			name: "ヘルプ表示",
			args: []string{"-h"},
			expected: Config{
				LogLevel: "info",
				ShowHelp: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", "")
			t.Setenv("XMI2MID_TRACK", "")
			t.Setenv("XMI2MID_OUTPUT", "")

			config, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *config != tt.expected {
				t.Errorf("config = %+v, want %+v", *config, tt.expected)
			}
		})
	}
}

func TestParseArgs_InvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"不正なログレベル", []string{"--log-level", "verbose"}},
		{"負のトラック番号", []string{"--track=-1", "music.xmi"}},
		{"数値でないトラック番号", []string{"-n", "abc", "music.xmi"}},
		{"未定義のフラグ", []string{"--unknown"}},
		{"全トラックを標準出力", []string{"--all", "-o", "-", "music.xmi"}},
		{"余分な位置引数", []string{"a.xmi", "b.xmi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", "")
			if _, err := ParseArgs(tt.args); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestParseArgs_Environment(t *testing.T) {
	t.Run("環境変数から設定", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "DEBUG")
		t.Setenv("XMI2MID_TRACK", "4")
		t.Setenv("XMI2MID_OUTPUT", "env.mid")

		config, err := ParseArgs([]string{"music.xmi"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.LogLevel != "debug" || config.Track != 4 || config.OutputPath != "env.mid" {
			t.Errorf("config = %+v", *config)
		}
	})

	t.Run("フラグが環境変数より優先", func(t *testing.T) {
		t.Setenv("XMI2MID_TRACK", "4")
		t.Setenv("XMI2MID_OUTPUT", "env.mid")

		config, err := ParseArgs([]string{"-n", "0", "-o", "flag.mid", "music.xmi"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.Track != 0 || config.OutputPath != "flag.mid" {
			t.Errorf("config = %+v", *config)
		}
	})

	t.Run("不正なトラック番号", func(t *testing.T) {
		t.Setenv("XMI2MID_TRACK", "first")
		if _, err := ParseArgs([]string{"music.xmi"}); err == nil {
			t.Error("expected error, got nil")
		}
	})
}

func TestConfig_OutputFor(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		track  int
		want   string
	}{
		{"入力名から決定", Config{InputPath: "dir/MUSIC.XMI"}, 0, "dir/MUSIC.mid"},
		{"明示的な出力先", Config{InputPath: "music.xmi", OutputPath: "out.mid"}, 2, "out.mid"},
		{"全トラック", Config{InputPath: "music.xmi", AllTracks: true}, 7, "music-07.mid"},
		{"全トラックで出力名指定", Config{InputPath: "music.xmi", OutputPath: "out/song.mid", AllTracks: true}, 12, "out/song-12.mid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.OutputFor(tt.track); got != tt.want {
				t.Errorf("OutputFor(%d) = %q, want %q", tt.track, got, tt.want)
			}
		})
	}
}
