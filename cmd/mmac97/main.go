package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/urfave/cli"

	"github.com/mmst/go-milkymist/milkymist"
	"github.com/mmst/go-milkymist/milkymist/ac97"
	"github.com/mmst/go-milkymist/milkymist/irq"
	"github.com/mmst/go-milkymist/milkymist/monitor"
	"github.com/mmst/go-milkymist/milkymist/pcm"
	"github.com/mmst/go-milkymist/milkymist/snd"
)

// pcmBase is where decoded audio lands in guest RAM, clear of the area a
// real guest would use for its own code.
const pcmBase = 0x40000

// segmentBytes is how much one DMA programming covers; the driver
// reprograms the channel on every completion pulse, like a real guest
// driver streaming a large buffer.
const segmentBytes = 256 * 1024

func main() {
	app := cli.NewApp()
	app.Name = "mmac97"
	app.Description = "Plays audio files through an emulated Milkymist AC'97 controller"
	app.Usage = "mmac97 [options] <audio file (wav/mp3/ogg)>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run without host audio, as fast as possible",
		},
		cli.StringFlag{
			Name:  "capture",
			Usage: "Write the played stream to a WAV file (implies headless)",
		},
		cli.StringFlag{
			Name:  "record",
			Usage: "Push the file through the record channel instead and write guest memory to this WAV file",
		},
		cli.BoolFlag{
			Name:  "monitor",
			Usage: "Show a live register/interrupt dashboard while playing",
		},
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("Error running emulation", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	if c.NArg() < 1 {
		cli.ShowAppHelp(c)
		return errors.New("no audio file provided")
	}

	stream, err := pcm.DecodeFile(c.Args().Get(0))
	if err != nil {
		return err
	}
	data := stream.Convert(snd.SampleRate, snd.Channels).Bytes()
	slog.Info("Decoded audio file",
		"bytes", len(data),
		"duration", time.Duration(len(data)/snd.FrameBytes)*time.Second/snd.SampleRate)

	if c.String("record") != "" {
		return runRecord(data, c.String("record"))
	}
	return runPlayback(c, data)
}

func runPlayback(c *cli.Context, data []byte) error {
	headless := c.Bool("headless") || c.String("capture") != ""

	var backend snd.Backend
	var file *snd.File
	if headless {
		f, err := snd.NewFile(c.String("capture"))
		if err != nil {
			return err
		}
		file = f
		backend = f
	} else {
		o, err := snd.NewOto()
		if err != nil {
			return err
		}
		backend = o
	}

	pulses := monitor.PulseCounters{
		CodecRequest: &irq.Counter{},
		CodecReply:   &irq.Counter{},
		DMARead:      &irq.Counter{},
		DMAWrite:     &irq.Counter{},
	}

	// Completion pulses drive the segment reprogramming loop.
	complete := make(chan struct{}, 16)
	notify := func() {
		select {
		case complete <- struct{}{}:
		default:
		}
	}

	m, err := milkymist.New(milkymist.Config{
		Backend: backend,
		Lines: ac97.Lines{
			CodecRequest: pulses.CodecRequest.Line(),
			CodecReply:   pulses.CodecReply.Line(),
			DMARead:      irq.Fanout(pulses.DMARead.Line(), notify),
			DMAWrite:     pulses.DMAWrite.Line(),
		},
	})
	if err != nil {
		return err
	}
	defer m.Close()

	if len(data) > m.RAM().Size()-pcmBase {
		data = data[:m.RAM().Size()-pcmBase]
		slog.Warn("Audio truncated to fit guest memory", "bytes", len(data))
	}
	m.RAM().Write(pcmBase, data)

	done := make(chan struct{})
	go func() {
		defer close(done)
		streamSegments(m, file, complete, len(data))
	}()

	if c.Bool("monitor") && !headless {
		mon, err := monitor.New(m.AC97(), pulses)
		if err != nil {
			return err
		}
		mon.Run(done)
	} else {
		<-done
	}

	slog.Info("Playback finished",
		"dma_read_pulses", pulses.DMARead.Count())
	return nil
}

// streamSegments walks the decoded buffer one DMA segment at a time,
// reprogramming the download channel after each completion pulse.
func streamSegments(m *milkymist.Machine, file *snd.File, complete <-chan struct{}, total int) {
	for offset := 0; offset < total; offset += segmentBytes {
		length := total - offset
		if length > segmentBytes {
			length = segmentBytes
		}
		m.ProgramPlayback(uint32(pcmBase+offset), uint32(length))

		if file != nil {
			// Offline: pump capacity until the segment drains.
			for m.Read32(milkymist.AC97Base+ac97.RegDRemaining*4) > 0 {
				file.PumpOut(segmentBytes)
			}
			// Consume the completion signal.
			<-complete
			continue
		}

		select {
		case <-complete:
		case <-time.After(time.Minute):
			slog.Error("Timed out waiting for DMA completion", "offset", offset)
			return
		}
	}
	m.StopPlayback()

	if file != nil {
		if err := file.Close(); err != nil {
			slog.Error("Failed to finalize capture file", "error", err)
		}
	}
}

// runRecord pushes the decoded stream through the upload channel into
// guest memory, then writes the captured region out as a WAV file.
func runRecord(data []byte, outPath string) error {
	backend, err := snd.NewFile("")
	if err != nil {
		return err
	}

	var done irq.Counter
	m, err := milkymist.New(milkymist.Config{
		Backend: backend,
		Lines:   ac97.Lines{DMAWrite: done.Line()},
	})
	if err != nil {
		return err
	}
	defer m.Close()

	if len(data) > m.RAM().Size()-pcmBase {
		data = data[:m.RAM().Size()-pcmBase]
	}
	backend.FeedInput(data)

	m.ProgramRecord(pcmBase, uint32(len(data)))
	for m.Read32(milkymist.AC97Base+ac97.RegURemaining*4) > 0 {
		backend.PumpIn(segmentBytes)
	}
	m.StopRecord()

	captured := make([]byte, len(data))
	m.RAM().Read(pcmBase, captured)
	if err := writeWAV(outPath, captured); err != nil {
		return err
	}

	slog.Info("Record finished", "path", outPath, "bytes", len(captured),
		"dma_write_pulses", done.Count())
	return nil
}

func writeWAV(path string, raw []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, snd.SampleRate, snd.SampleBits, snd.Channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: snd.Channels, SampleRate: snd.SampleRate},
		Data:           make([]int, len(raw)/2),
		SourceBitDepth: snd.SampleBits,
	}
	for i := range buf.Data {
		buf.Data[i] = int(int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8))
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to encode WAV: %w", err)
	}
	return enc.Close()
}
