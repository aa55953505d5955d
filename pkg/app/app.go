package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/zurustar/xmi2mid/pkg/cli"
	"github.com/zurustar/xmi2mid/pkg/datasource"
	"github.com/zurustar/xmi2mid/pkg/fileutil"
	"github.com/zurustar/xmi2mid/pkg/inspect"
	"github.com/zurustar/xmi2mid/pkg/logger"
	"github.com/zurustar/xmi2mid/pkg/smfcheck"
	"github.com/zurustar/xmi2mid/pkg/xmidi"
)

// ErrNoInput は入力ファイルが指定されていない場合のエラー
var ErrNoInput = errors.New("no input file")

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config *cli.Config
	log    *slog.Logger
	fsys   fileutil.FileSystem
	stdout io.Writer
}

// New Applicationを作成
func New() *Application {
	return &Application{
		fsys:   fileutil.NewRealFS(),
		stdout: os.Stdout,
	}
}

// NewWithFS 入力元と標準出力を指定してApplicationを作成
func NewWithFS(fsys fileutil.FileSystem, stdout io.Writer) *Application {
	return &Application{
		fsys:   fsys,
		stdout: stdout,
	}
}

// Run アプリケーションを実行
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	if err := app.parseArgs(args); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	if app.config.ShowHelp {
		cli.PrintHelp()
		return nil
	}
	if app.config.InputPath == "" {
		cli.PrintHelp()
		return ErrNoInput
	}

	// 2. ロガーの初期化
	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.log.Debug("Application started", "input", app.config.InputPath)

	// 3. XMIDIファイルの読み込み
	container, err := app.loadContainer()
	if err != nil {
		return fmt.Errorf("failed to decode XMIDI: %w", err)
	}

	app.log.Info("XMIDI loaded", "path", app.config.InputPath, "tracks", container.TrackCount())

	// 4. 一覧表示またはダンプ
	if app.config.List {
		if err := app.listTracks(container); err != nil {
			return fmt.Errorf("failed to list tracks: %w", err)
		}
		return nil
	}
	if app.config.Dump {
		if err := app.dumpTrack(container, app.config.Track); err != nil {
			return fmt.Errorf("failed to dump track: %w", err)
		}
		return nil
	}

	// 5. 変換
	tracks := []int{app.config.Track}
	if app.config.AllTracks {
		tracks = tracks[:0]
		for i := 0; i < container.TrackCount(); i++ {
			tracks = append(tracks, i)
		}
	}
	for _, i := range tracks {
		if err := app.convertTrack(container, i); err != nil {
			return fmt.Errorf("failed to convert track %d: %w", i, err)
		}
	}

	app.log.Debug("Application terminated normally")
	return nil
}

// parseArgs コマンドライン引数を解析
func (app *Application) parseArgs(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	app.config = config
	return nil
}

// initLogger ロガーを初期化
func (app *Application) initLogger() error {
	if err := logger.InitLogger(app.config.LogLevel); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}

// loadContainer 入力ファイルを読み込んでデコード
func (app *Application) loadContainer() (*xmidi.Container, error) {
	data, err := app.fsys.ReadFile(app.config.InputPath)
	if err != nil {
		return nil, err
	}
	return xmidi.Decode(datasource.NewBuffer(data))
}

// convertTrack トラックをSMFに変換して書き出す
func (app *Application) convertTrack(c *xmidi.Container, index int) error {
	path := app.config.OutputFor(index)

	var data []byte
	if path == cli.Stdout {
		var err error
		if data, err = c.MIDI(index); err != nil {
			return err
		}
		if _, err := app.stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write to stdout: %w", err)
		}
	} else {
		n, err := app.writeFile(c, index, path)
		if err != nil {
			return err
		}
		app.log.Info("MIDI written", "track", index, "path", path, "bytes", n)
		if app.config.Verify {
			if data, err = readFile(path); err != nil {
				return err
			}
		}
	}

	if app.config.Verify {
		return app.verify(c.Track(index), index, data)
	}
	return nil
}

// writeFile トラックをファイルに直接書き出す
func (app *Application) writeFile(c *xmidi.Container, index int, path string) (int, error) {
	// 範囲外のトラックで空のファイルを作らないよう先にサイズを求める
	size, err := c.Retrieve(index, nil)
	if err != nil {
		return 0, err
	}

	out, err := datasource.CreateFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	n, err := c.Retrieve(index, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if n != size {
		return n, fmt.Errorf("wrote %d bytes to %s, expected %d", n, path, size)
	}
	return n, nil
}

func readFile(path string) ([]byte, error) {
	in, err := datasource.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return in.ReadBytes(int(in.Size()))
}

// verify 書き出したMIDIを読み戻して検証
func (app *Application) verify(t *xmidi.Track, index int, data []byte) error {
	report, err := smfcheck.Check(data)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	if report.Resolution != t.Timing() {
		return fmt.Errorf("verification failed: %w: division %d, track timing %d",
			smfcheck.ErrMismatch, report.Resolution, t.Timing())
	}
	app.log.Info("MIDI verified",
		"track", index,
		"events", report.Events,
		"notes", report.NoteStarts,
		"tempo", report.Tempo(),
		"length", report.Length.Round(time.Millisecond),
	)
	return nil
}

// listTracks トラック一覧を表示
func (app *Application) listTracks(c *xmidi.Container) error {
	for i := 0; i < c.TrackCount(); i++ {
		size, err := c.Retrieve(i, nil)
		if err != nil {
			return err
		}
		t := c.Track(i)
		if _, err := fmt.Fprintf(app.stdout, "track %2d: %6d events, timing %4d, %7d bytes\n",
			i, len(t.Events()), t.Timing(), size); err != nil {
			return err
		}
	}
	return nil
}

// dumpTrack トラックのイベントを表示
func (app *Application) dumpTrack(c *xmidi.Container, index int) error {
	// 修復後のイベントを表示する
	if _, err := c.Retrieve(index, nil); err != nil {
		return err
	}
	t := c.Track(index)
	if _, err := fmt.Fprintf(app.stdout, "track %d, timing %d\n", index, t.Timing()); err != nil {
		return err
	}
	return inspect.Dump(app.stdout, t.Events())
}
