package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config はコマンドライン引数から解析された設定を保持する
type Config struct {
	InputPath  string // 入力XMIDIファイルのパス
	OutputPath string // 出力先（"-" は標準出力、空なら入力名から決定）
	Track      int    // 変換するトラック番号（0始まり）
	AllTracks  bool   // 全トラックをそれぞれ別ファイルに変換
	List       bool   // トラック一覧を表示して終了
	Dump       bool   // イベントを表示して終了
	Verify     bool   // 出力したMIDIを読み戻して検証
	LogLevel   string // ログレベル（debug, info, warn, error）
	ShowHelp   bool   // ヘルプ表示フラグ
}

// Stdout は標準出力を表す出力先
const Stdout = "-"

// boolFlags は値を取らないフラグ
var boolFlags = map[string]bool{
	"all": true, "list": true, "dump": true, "verify": true, "help": true, "h": true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("xmi2mid", flag.ContinueOnError)

	config := &Config{}

	fs.StringVar(&config.OutputPath, "o", "", "出力ファイル（- で標準出力）")
	fs.IntVar(&config.Track, "track", 0, "変換するトラック番号")
	fs.IntVar(&config.Track, "n", 0, "変換するトラック番号（短縮形）")
	fs.BoolVar(&config.AllTracks, "all", false, "全トラックを変換")
	fs.BoolVar(&config.List, "list", false, "トラック一覧を表示")
	fs.BoolVar(&config.Dump, "dump", false, "イベントを表示")
	fs.BoolVar(&config.Verify, "verify", false, "出力を検証")
	fs.StringVar(&config.LogLevel, "log-level", "info", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&config.LogLevel, "l", "info", "ログレベル（短縮形）")
	fs.BoolVar(&config.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&config.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	// 明示的に指定されたフラグ
	given := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { given[f.Name] = true })

	// 環境変数からトラック番号を取得（コマンドラインフラグが優先）
	if !given["track"] && !given["n"] {
		if trackEnv := os.Getenv("XMI2MID_TRACK"); trackEnv != "" {
			n, err := strconv.Atoi(trackEnv)
			if err != nil {
				return nil, fmt.Errorf("invalid XMI2MID_TRACK: %s", trackEnv)
			}
			config.Track = n
		}
	}

	// 環境変数から出力先を取得（コマンドラインフラグが優先）
	if config.OutputPath == "" {
		config.OutputPath = os.Getenv("XMI2MID_OUTPUT")
	}

	// 環境変数からログレベルを取得（コマンドラインフラグが優先）
	if config.LogLevel == "info" {
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
		}
	}

	// ログレベルの検証
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	// トラック番号の検証
	if config.Track < 0 {
		return nil, fmt.Errorf("track must be non-negative, got %d", config.Track)
	}

	if config.AllTracks && config.OutputPath == Stdout {
		return nil, fmt.Errorf("-all cannot write to standard output")
	}

	// 位置引数（入力ファイルのパス）
	if fs.NArg() > 0 {
		config.InputPath = fs.Arg(0)
	}
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args()[1:], " "))
	}

	return config, nil
}

// OutputFor トラックの出力先を決定する
// 明示的な出力先がない場合は入力ファイル名の拡張子を .mid に置き換える
func (c *Config) OutputFor(track int) string {
	if c.AllTracks {
		base := c.OutputPath
		if base == "" {
			base = c.InputPath
		}
		base = strings.TrimSuffix(base, filepath.Ext(base))
		return fmt.Sprintf("%s-%02d.mid", base, track)
	}
	if c.OutputPath != "" {
		return c.OutputPath
	}
	return strings.TrimSuffix(c.InputPath, filepath.Ext(c.InputPath)) + ".mid"
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// 単独の "-" は標準出力を表す値
		if len(arg) > 1 && arg[0] == '-' {
			flags = append(flags, arg)

			// 次の引数が値である可能性をチェック
			// （-n 2 のような場合）
			name := strings.TrimLeft(arg, "-")
			if strings.Contains(name, "=") || boolFlags[name] {
				continue
			}
			if i+1 < len(args) && (len(args[i+1]) == 0 || args[i+1][0] != '-' || args[i+1] == Stdout) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			// 位置引数
			positional = append(positional, arg)
		}
	}

	// フラグを前に、位置引数を後ろに配置
	return append(flags, positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp() {
	fmt.Fprintf(os.Stdout, `xmi2mid - XMIDI to Standard MIDI File converter

Usage:
  xmi2mid [options] <input.xmi>

Arguments:
  input.xmi     変換するXMIDIファイル（大文字小文字を区別せずに検索）

Options:
  -o <file>                   出力ファイル（- で標準出力、デフォルト: <input>.mid）
  -n, --track <index>         変換するトラック番号（デフォルト: 0）
  --all                       全トラックを <input>-NN.mid に変換
  --list                      トラック一覧を表示
  --dump                      トラックのイベントを表示
  --verify                    出力したMIDIを読み戻して検証
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  -h, --help                  このヘルプを表示

Environment Variables:
  XMI2MID_TRACK=<index>       トラック番号
  XMI2MID_OUTPUT=<file>       出力ファイル
  LOG_LEVEL=<level>           ログレベル

Examples:
  xmi2mid music.xmi                 music.mid を作成
  xmi2mid -n 3 -o battle.mid music.xmi
  xmi2mid --all music.xmi           music-00.mid, music-01.mid, ...
  xmi2mid -o - music.xmi | aplaymidi -p 14:0 -
  xmi2mid --list music.xmi
`)
}
