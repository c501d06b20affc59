// Command n80 runs Space Invaders, and other Intel 8080 programs.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/pprof"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"golang.org/x/term"

	"github.com/nf/n80/i8080"
	"github.com/nf/n80/invaders"
)

const statsAddr = "localhost:12600"

func main() {
	log.SetPrefix("n80: ")
	log.SetFlags(0)

	var (
		cliFlag   = flag.Bool("cli", false, "disable GUI features and draw in the terminal")
		devFlag   = flag.Bool("dev", false, "enable developer mode (reload the ROM when it changes)")
		debugFlag = flag.Bool("debug", false, "enable debugger (implies -dev)")
		diagFlag  = flag.Bool("diag", false, "run a CP/M .COM program, such as a CPU diagnostic, on the bare CPU")
		traceFlag = flag.Bool("trace", false, "log each instruction executed in -diag mode")

		soundsFlag = flag.String("sounds", "", "load sound samples from `dir`")
		shipsFlag  = flag.Int("ships", 3, "ships per game, 3 to 6")
		bonusFlag  = flag.Bool("bonus_1000", false, "award the extra ship at 1000 points instead of 1500")
		scaleFlag  = flag.Int("scale", 2, "GUI window scale `factor`")

		statsFlag      = flag.Bool("stats", false, "serve runtime statistics on "+statsAddr)
		cpuProfileFlag = flag.String("cpu_profile", "", "write CPU profile to `file`")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <program.rom | romdir>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s <-dev | -debug> [flags] <program.rom | romdir>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s -diag <program.com>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
	}

	if *statsFlag {
		viewer.SetConfiguration(viewer.WithAddr(statsAddr))
		mgr := statsview.New()
		go mgr.Start()
		log.Printf("stats server available at http://%s/debug/statsview", statsAddr)
	}

	if *diagFlag {
		var trace i8080.TraceFunc
		if *traceFlag {
			trace = func(c *i8080.CPU, in i8080.Instr) {
				log.Printf("%v  %v", c, in)
			}
		}
		if err := diag(flag.Arg(0), os.Stdout, trace); err != nil {
			log.Fatal(err)
		}
		return
	}

	opts := invaders.RunnerOptions{
		Display: invaders.GUIDisplay,
		Scale:   *scaleFlag,
		Config: invaders.Config{
			Ships:           *shipsFlag,
			ExtraShipAt1000: *bonusFlag,
			CoinInfo:        true,
		},
	}
	if *cliFlag {
		opts.Display = invaders.NoDisplay
		// The debugger owns the terminal when it is running.
		if term.IsTerminal(int(os.Stdout.Fd())) && !*debugFlag {
			opts.Display = invaders.TermDisplay
		}
	}
	if dir := *soundsFlag; dir != "" {
		spk, err := invaders.NewSampleSpeaker(dir)
		if err != nil {
			log.Fatal(err)
		}
		defer spk.Close()
		opts.Speaker = spk
	}

	if *devFlag || *debugFlag {
		if *debugFlag && !term.IsTerminal(int(os.Stdin.Fd())) {
			log.Fatal("-debug requires a terminal")
		}
		if err := devMode(opts, *debugFlag, flag.Arg(0)); err != nil {
			log.Fatal(err)
		}
		return
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

	err := run(flag.Arg(0), opts)

	if f := cpuProfile; f != nil {
		pprof.StopCPUProfile()
		f.Close()
	}

	if err != nil {
		log.Fatal(err)
	}
}

func run(romPath string, opts invaders.RunnerOptions) error {
	rom, err := loadROM(romPath)
	if err != nil {
		return err
	}
	return invaders.NewRunner(opts).Run(rom)
}

// diag runs a CP/M program until it exits through BDOS, returns past the
// end of its image or halts.
func diag(comPath string, out io.Writer, trace i8080.TraceFunc) error {
	com, err := os.ReadFile(comPath)
	if err != nil {
		return err
	}
	c := i8080.NewCOM(com)
	c.Console = out
	c.Trace = trace
	if err := c.Run(nil); err != nil {
		return fmt.Errorf("%v\n%v", err, c)
	}
	return nil
}
