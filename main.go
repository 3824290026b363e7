package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dgramsec/go-dtls-record/keys"
	"github.com/dgramsec/go-dtls-record/record"
	"github.com/dgramsec/go-dtls-record/recordaead"
	"github.com/dgramsec/go-dtls-record/suite"
)

// dtls-echo: a demo that runs the record layer over UDP between two
// endpoints sharing a pre-shared key. The server echoes every accepted
// application-data record back to its sender.

var config struct {
	Listen  string
	Connect string
	Cipher  string
	Key     string
	Legacy  bool
	Verbose bool
	Timeout time.Duration
}

func main() {
	flag.StringVar(&config.Listen, "l", "", "server listen address")
	flag.StringVar(&config.Connect, "c", "", "client connect address")
	flag.StringVar(&config.Cipher, "cipher", "AES-128-GCM", "cipher suite ("+strings.Join(suite.List(), ", ")+")")
	flag.StringVar(&config.Key, "key", "", "pre-shared key")
	flag.BoolVar(&config.Legacy, "legacy", false, "use the legacy (1.2-generation) record format")
	flag.BoolVar(&config.Verbose, "verbose", false, "verbose mode")
	flag.DurationVar(&config.Timeout, "timeout", 5*time.Second, "client read timeout")
	flag.Parse()

	log := logrus.New()
	if config.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if config.Key == "" || (config.Listen == "") == (config.Connect == "") {
		flag.Usage()
		os.Exit(1)
	}

	p, err := suite.Pick(config.Cipher)
	if err != nil {
		log.Fatal(err)
	}
	version := recordaead.DTLS13
	if config.Legacy || p.CBCShim {
		version = recordaead.DTLS12
	}

	if config.Listen != "" {
		runServer(log, p, version)
	} else {
		runClient(log, p, version)
	}
}

func runServer(log *logrus.Logger, p *suite.Profile, version recordaead.Version) {
	ep, err := keys.NewEpoch([]byte(config.Key), 1, version, p, false)
	if err != nil {
		log.Fatal(err)
	}
	c, err := net.ListenPacket("udp", config.Listen)
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()
	log.Infof("listening on %s (%s)", config.Listen, p.Name)

	framer := record.NewFramer(log)
	framer.EnableDedupe()

	buf := make([]byte, 64*1024)
	for {
		n, addr, err := c.ReadFrom(buf)
		if err != nil {
			log.Errorf("read: %v", err)
			return
		}
		recs, err := framer.Accept(ep, buf[:n])
		if err != nil {
			log.Errorf("fatal record error from %s: %v", addr, err)
			return
		}
		for _, r := range recs {
			if r.Type != recordaead.TypeApplicationData {
				continue
			}
			log.Debugf("echo %d bytes to %s (seq %d)", len(r.Payload), addr, r.Sequence)
			wire, err := framer.Emit(ep, recordaead.TypeApplicationData, r.Payload)
			if err != nil {
				log.Errorf("emit: %v", err)
				return
			}
			if _, err := c.WriteTo(wire, addr); err != nil {
				log.Errorf("write: %v", err)
				return
			}
		}
	}
}

func runClient(log *logrus.Logger, p *suite.Profile, version recordaead.Version) {
	ep, err := keys.NewEpoch([]byte(config.Key), 1, version, p, true)
	if err != nil {
		log.Fatal(err)
	}
	c, err := net.Dial("udp", config.Connect)
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	framer := record.NewFramer(log)
	lines := flag.Args()
	if len(lines) == 0 {
		lines = []string{"ping"}
	}

	buf := make([]byte, 64*1024)
	for _, line := range lines {
		wire, err := framer.Emit(ep, recordaead.TypeApplicationData, []byte(line))
		if err != nil {
			log.Fatal(err)
		}
		if _, err := c.Write(wire); err != nil {
			log.Fatal(err)
		}
		c.SetReadDeadline(time.Now().Add(config.Timeout))
		n, err := c.Read(buf)
		if err != nil {
			log.Fatal(err)
		}
		recs, err := framer.Accept(ep, buf[:n])
		if err != nil {
			log.Fatal(err)
		}
		for _, r := range recs {
			fmt.Printf("%s\n", r.Payload)
		}
	}
}
