package metrics

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Log periodically appends a snapshot of counters to a rotating CSV
// file: path is split into a directory and a filename that is itself
// passed through time.Now().Format so operators can roll the file
// daily (e.g. "stats-2006-01-02.csv"). A zero path or zero interval
// disables logging entirely.
func Log(path string, interval time.Duration, counters *Counters) {
	if path == "" || interval == 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		logdir, logfile := filepath.Split(path)
		f, err := os.OpenFile(logdir+time.Now().Format(logfile), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			log.Println(err)
			return
		}

		w := csv.NewWriter(f)
		if stat, err := f.Stat(); err == nil && stat.Size() == 0 {
			if err := w.Write(append([]string{"Unix"}, counters.Header()...)); err != nil {
				log.Println(err)
			}
		}
		if err := w.Write(append([]string{fmt.Sprint(time.Now().Unix())}, counters.ToSlice()...)); err != nil {
			log.Println(err)
		}
		w.Flush()
		f.Close()
	}
}
