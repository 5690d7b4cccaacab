// Command paiocat reads a file one byte at a time, each byte its own
// asynchronous request, waits for every request to complete, and prints
// the reassembled contents to stdout. It mirrors musl's test/test.c
// sweep over /etc/passwd, supplemented per SPEC_FULL.md as a trivial
// example program rather than part of the library's tested surface.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/gopaio/paio"
)

func main() {
	path := flag.String("file", "/etc/passwd", "file to read")
	flag.Parse()

	f, err := os.Open(*path)
	if err != nil {
		log.Fatalln("open:", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		log.Fatalln("stat:", err)
	}
	size := int(info.Size())
	if size == 0 {
		return
	}

	out := make([]byte, size)
	reqs := make([]*paio.Request, size)
	for i := 0; i < size; i++ {
		buf := out[i : i+1]
		r := paio.NewRequest(int(f.Fd()), buf, int64(i), 0, paio.Sigevent{})
		if err := paio.Read(r); err != nil {
			log.Fatalln("read submit:", err)
		}
		reqs[i] = r
	}

	pending := append([]*paio.Request(nil), reqs...)
	for len(pending) > 0 {
		if err := paio.Suspend(pending, paio.NoTimeout); err != nil {
			log.Fatalln("suspend:", err)
		}
		remaining := pending[:0]
		for _, r := range pending {
			if paio.Error(r) == paio.InProgress {
				remaining = append(remaining, r)
			}
		}
		pending = remaining
	}

	for _, r := range reqs {
		if _, err := paio.Return(r); err != nil {
			log.Fatalln("return:", err)
		}
	}

	os.Stdout.Write(out)
}
