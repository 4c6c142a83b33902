// Command clipinfo inspects clip files and can replay them headlessly
// through a real scheduler, tracing the frames a feed would present.
//
// Usage:
//
//	clipinfo [flags] <file.gif>
//
//	-play     drive playback and trace presented frames
//	-loops n  stop after n loop passes (with -play)
//	-config d directory holding an optional clip.yaml
//	-v        verbose logging
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/go-drift/clip/pkg/clip"
	"github.com/go-drift/clip/pkg/config"
	"github.com/go-drift/clip/pkg/decode"
	cliperrors "github.com/go-drift/clip/pkg/errors"
)

func main() {
	play := flag.Bool("play", false, "drive playback and trace presented frames")
	loops := flag.Int("loops", 1, "loop passes to play before stopping")
	configDir := flag.String("config", ".", "directory holding an optional clip.yaml")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: clipinfo [flags] <file.gif>")
		flag.Usage()
		os.Exit(2)
	}

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
	cliperrors.SetHandler(&cliperrors.ZerologHandler{Logger: log})

	cfg, err := config.Resolve(*configDir)
	if err != nil {
		log.Fatal().Err(err).Msg("resolving configuration")
	}

	path := flag.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("reading clip")
	}

	attrs, err := decode.ReadAttributes(data)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("probing clip")
	}

	fmt.Printf("%s: %dx%d, %d frame(s), %s, animated=%v\n",
		path, attrs.Width, attrs.Height, attrs.FrameCount,
		time.Duration(attrs.DurationMs)*time.Millisecond, attrs.Animated)

	if !*play {
		return
	}
	if clip.LoadLevel() > cfg.LoadThreshold {
		log.Warn().Int64("load", clip.LoadLevel()).Msg("load level above threshold; playing anyway")
	}
	if err := replay(log, cfg, data, attrs, *loops); err != nil {
		log.Fatal().Err(err).Msg("playback failed")
	}
}

// replay runs the clip through a Manager and paints to the log instead
// of a widget, acknowledging frames the way a feed's paint path would.
func replay(log zerolog.Logger, cfg *config.Resolved, data []byte, attrs decode.Attributes, loops int) error {
	engine, err := decode.NewGIF(data)
	if err != nil {
		return err
	}
	defer engine.Close()

	manager := clip.NewManager(
		clip.WithLogger(log),
		clip.WithTickFloor(time.Duration(cfg.TickFloorMs)*time.Millisecond),
	)
	defer manager.Finish()

	notify, events := clip.ChannelCallback(cfg.NotifyBuffer)
	reader := clip.NewReader(engine, notify, clip.WithAutoplay())
	manager.Append(reader, int64(len(data)))

	start := time.Now()
	played := 0
	var lastPos int64 = -1

	deadline := time.After(time.Duration(loops+1)*time.Duration(attrs.DurationMs)*time.Millisecond + 3*time.Second)
	for {
		select {
		case n := <-events:
			switch n.Kind {
			case clip.NotificationError:
				return fmt.Errorf("session entered %s state", reader.State())
			case clip.NotificationFinished:
				return nil
			case clip.NotificationRepaint, clip.NotificationCopyFrame:
				if !reader.Started() {
					reader.Start(1, attrs.Width, attrs.Height, attrs.Width, attrs.Height, clip.RoundNone)
					continue
				}
				ms := time.Since(start).Milliseconds()
				if img := reader.Current(1, attrs.Width, attrs.Height, attrs.Width, attrs.Height, clip.RoundNone, ms); img != nil {
					pos := reader.PositionMs()
					if pos < lastPos {
						played++
						if played >= loops {
							reader.Stop()
							return nil
						}
					}
					lastPos = pos
					log.Info().Int64("position_ms", pos).Msg("frame presented")
				}
			}
		case <-deadline:
			return fmt.Errorf("playback did not finish in time")
		}
	}
}
