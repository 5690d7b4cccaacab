// Command paiolistio reads a whole file via a single lio_listio-style
// submission in wait mode, then prints the reassembled contents. It
// mirrors musl's test/test2.c, supplemented per SPEC_FULL.md as a
// trivial example program rather than part of the library's tested
// surface.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/gopaio/paio"
)

func main() {
	path := flag.String("file", "", "file to read")
	chunk := flag.Int("chunk", 4096, "bytes per request")
	flag.Parse()
	if *path == "" {
		log.Fatalln("usage: paiolistio -file <path>")
	}

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
	var list []*paio.Request
	for off := 0; off < size; off += *chunk {
		n := *chunk
		if off+n > size {
			n = size - off
		}
		list = append(list, paio.NewRequest(int(f.Fd()), out[off:off+n], int64(off), 0, paio.Sigevent{}))
	}

	if err := paio.ListIO(paio.ListIOWait, list, nil); err != nil {
		log.Fatalln("lio_listio:", err)
	}

	for _, r := range list {
		if errno := paio.Error(r); errno != 0 {
			log.Fatalf("request at offset %d failed: errno %d", r.Offset, errno)
		}
		if _, err := paio.Return(r); err != nil {
			log.Fatalln("return:", err)
		}
	}

	os.Stdout.Write(out)
}
