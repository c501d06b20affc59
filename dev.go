package main

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/howeyc/fsnotify"
	"github.com/pkg/errors"

	"github.com/nf/n80/invaders"
)

// devMode runs the ROM at romPath, reloading it whenever it changes on disk.
// A symbol file named romPath+".sym" is loaded alongside it if present.
// With debug set, a debugger takes over the controlling terminal.
func devMode(opts invaders.RunnerOptions, debug bool, romPath string) error {
	romPath = filepath.Clean(romPath)
	symPath := romPath + ".sym"

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	watchDir := romPath
	if fi, err := os.Stat(romPath); err != nil {
		return err
	} else if !fi.IsDir() {
		watchDir = filepath.Dir(romPath)
	}
	if err := watcher.Watch(watchDir); err != nil {
		return errors.Wrapf(err, "watching %s", watchDir)
	}

	opts.Dev = true
	var d *debugger
	if debug {
		d = newDebugger()
		opts.State = d.StateFunc
	}
	runner := invaders.NewRunner(opts)
	if d != nil {
		d.run = runner
		log.SetPrefix("")
		log.SetOutput(d.log)
		go func() {
			if err := d.Run(); err != nil {
				log.Fatalf("debug: %v", err)
			}
			log.SetOutput(os.Stderr)
			log.SetPrefix("n80: ")
			runner.Debug("exit", 0)
		}()
	}

	romCh := make(chan []byte)
	go func() {
		started := false
		load := time.After(1 * time.Millisecond)
		for {
			select {
			case <-load:
				log.Printf("dev: load %s", filepath.Base(romPath))
				rom, err := loadROM(romPath)
				if err != nil {
					log.Printf("dev: %v", err)
					break
				}
				if d != nil {
					syms, err := parseSymbols(symPath)
					if err != nil && !os.IsNotExist(err) {
						log.Printf("dev: reading symbols: %v", err)
					}
					d.setSymbols(syms)
				}
				if !started {
					log.Printf("dev: start")
					romCh <- rom
					started = true
				} else {
					log.Printf("dev: reset")
					runner.Swap(rom)
				}
			case ev := <-watcher.Event:
				if changed(ev.Name, romPath, symPath) && !ev.IsAttrib() {
					load = time.After(100 * time.Millisecond)
				}
			case err := <-watcher.Error:
				log.Printf("dev: watcher: %v", err)
			}
		}
	}()
	return runner.Run(<-romCh)
}

// changed reports whether name is the symbol file or part of the ROM.
func changed(name, romPath, symPath string) bool {
	name = filepath.Clean(name)
	if name == romPath || name == symPath {
		return true
	}
	if filepath.Dir(name) != romPath {
		return false
	}
	for _, part := range romParts {
		if filepath.Base(name) == part {
			return true
		}
	}
	return false
}
