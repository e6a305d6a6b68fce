package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"sdm-scanner/internal/scpi"
)

func main() {
	var listen string
	var overloads string
	flag.StringVar(&listen, "listen", ":5025", "listen address for the SCPI socket")
	flag.StringVar(&overloads, "overload", "", "comma-separated channels that report overload, e.g. 3,9")
	flag.Parse()

	srv := scpi.NewServer()
	for _, field := range strings.Split(overloads, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		ch, err := strconv.Atoi(field)
		if err != nil || ch < 1 || ch > 16 {
			log.Fatalf("bad overload channel %q", field)
		}
		srv.InjectOverload(ch, "overload DC")
	}

	if err := srv.Listen(listen); err != nil {
		log.Fatalf("listen %s: %v", listen, err)
	}
	log.Printf("SCPI emulator listening on %s", srv.Addr())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	log.Printf("received signal: %v, shutting down...", s)
	srv.Close()
}
