// Command schip executes CHIP-8 and SUPER-CHIP programs.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime/pprof"

	"golang.org/x/term"

	"github.com/nf/schip/chip8"
	"github.com/nf/schip/host"
)

func main() {
	log.SetPrefix("schip: ")
	log.SetFlags(0)

	var (
		speedFlag  = flag.Int("speed", 11, "instructions executed per frame")
		hzFlag     = flag.Int("hz", 60, "frames per second (0 runs uncapped)")
		quirksFlag = flag.String("quirks", "schip", "quirk `preset` (chip8, schip, modern) or comma separated list of shift, wrap, jump, logic, memx, memx1")
		flagsFlag  = flag.String("flags", "", "RPL flag storage `file` (default <rom>.flags)")
		scaleFlag  = flag.Int("scale", 8, "window pixels per CHIP-8 pixel")
		termFlag   = flag.Bool("term", false, "draw the display in the terminal")
		cliFlag    = flag.Bool("cli", false, "run without a display")
		muteFlag   = flag.Bool("mute", false, "disable sound")
		devFlag    = flag.Bool("dev", false, "enable developer mode (reload the program when the rom file changes)")

		cpuProfileFlag = flag.String("cpu_profile", "", "write CPU profile to `file`")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <program.ch8>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
	}
	romFile := flag.Arg(0)

	q, err := chip8.ParseQuirks(*quirksFlag)
	if err != nil {
		log.Fatalf("-quirks: %v", err)
	}
	if *termFlag && *cliFlag {
		log.Fatal("-term and -cli are mutually exclusive")
	}
	if *termFlag && !term.IsTerminal(int(os.Stdout.Fd())) {
		log.Fatal("-term: standard output is not a terminal")
	}
	cfg := host.Config{
		Speed:     *speedFlag,
		Hz:        *hzFlag,
		Quirks:    q,
		FlagsFile: *flagsFlag,
		Mute:      *muteFlag,
		Dev:       *devFlag,
	}
	if cfg.FlagsFile == "" {
		cfg.FlagsFile = romFile + ".flags"
	}

	var cpuProfile io.Closer
	if prof := *cpuProfileFlag; prof != "" {
		f, err := os.Create(prof)
		if err != nil {
			log.Fatalf("creating CPU profile file: %v", err)
		}
		pprof.StartCPUProfile(f)
		cpuProfile = f
	}

	var fe host.Frontend
	switch {
	case *termFlag:
		t := host.NewTerm()
		t.SetStatus(fmt.Sprintf(" %s  speed=%d quirks=%v", filepath.Base(romFile), cfg.Speed, q))
		fe = t
	case *cliFlag:
		fe = host.Headless{}
	default:
		fe = &host.GUI{Title: "schip: " + filepath.Base(romFile), Scale: *scaleFlag}
	}

	err = run(romFile, cfg, fe)

	if f := cpuProfile; f != nil {
		pprof.StopCPUProfile()
		f.Close()
	}

	if err != nil {
		log.Fatal(err)
	}
}

func run(romFile string, cfg host.Config, fe host.Frontend) error {
	rom, err := host.ReadROM(romFile)
	if err != nil {
		return err
	}
	r := host.NewRunner(cfg, fe)
	if cfg.Dev {
		w, err := watchROM(romFile, r)
		if err != nil {
			return fmt.Errorf("dev: %v", err)
		}
		defer w.Close()
	}
	return r.Run(rom)
}
