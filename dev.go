package main

import (
	"log"
	"path/filepath"
	"time"

	"github.com/howeyc/fsnotify"

	"github.com/nf/schip/host"
)

// reloadDelay lets a burst of writes to the rom settle before it is
// read.
const reloadDelay = 100 * time.Millisecond

type romWatcher struct {
	w    *fsnotify.Watcher
	quit chan bool
	done chan bool
}

// watchROM reloads romFile into r whenever it changes on disk.
func watchROM(romFile string, r *host.Runner) (*romWatcher, error) {
	romFile = filepath.Clean(romFile)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Watch(filepath.Dir(romFile)); err != nil {
		w.Close()
		return nil, err
	}
	rw := &romWatcher{w: w, quit: make(chan bool), done: make(chan bool)}
	go rw.loop(romFile, r)
	return rw, nil
}

func (rw *romWatcher) loop(romFile string, r *host.Runner) {
	defer close(rw.done)
	var reload <-chan time.Time
	for {
		select {
		case <-rw.quit:
			return
		case <-reload:
			reload = nil
			rom, err := host.ReadROM(romFile)
			if err != nil {
				log.Printf("dev: %v", err)
				break
			}
			log.Printf("dev: reset %s", filepath.Base(romFile))
			if err := r.Reset(rom); err != nil {
				log.Printf("dev: reset: %v", err)
			}
		case ev, ok := <-rw.w.Event:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) == romFile && !ev.IsAttrib() && !ev.IsDelete() {
				reload = time.After(reloadDelay)
			}
		case err, ok := <-rw.w.Error:
			if !ok {
				return
			}
			log.Printf("dev: watcher: %v", err)
		}
	}
}

func (rw *romWatcher) Close() error {
	close(rw.quit)
	<-rw.done
	return rw.w.Close()
}
