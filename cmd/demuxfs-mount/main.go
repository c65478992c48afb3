// Command demuxfs-mount feeds a transport stream into a demuxfs.Engine and
// exposes the resulting table tree as a read-only FUSE filesystem.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/leandrotsampa/demuxfs"
	"github.com/leandrotsampa/demuxfs/vfs"
)

var (
	ctx, cancel = context.WithCancel(context.Background())
	allowOther  = flag.Bool("allow-other", false, "allow other users/processes to access the mount")
	inputPath   = flag.String("i", "", "the input path (file or udp://host:port)")
	mountPoint  = flag.String("m", "", "the mount point")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *mountPoint == "" {
		log.Fatal("demuxfs: use -m to indicate a mount point")
	}

	handleSignals()

	r, err := buildReader()
	if err != nil {
		log.Fatal(fmt.Errorf("demuxfs: parsing input failed: %w", err))
	}
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}

	eng := demuxfs.NewEngine()
	defer eng.Close()

	in, err := demuxfs.NewIngestor(eng, r, 0)
	if err != nil {
		log.Fatal(fmt.Errorf("demuxfs: creating ingestor failed: %w", err))
	}

	go func() {
		if err := in.Run(); err != nil && !errors.Is(err, demuxfs.ErrNoMorePackets) {
			log.Printf("demuxfs: ingesting failed: %v", err)
		}
	}()

	log.Printf("demuxfs: mounted at %s", *mountPoint)
	if err := vfs.Mount(*mountPoint, eng.Root(), *allowOther); err != nil {
		log.Fatal(fmt.Errorf("demuxfs: mount failed: %w", err))
	}
}

func handleSignals() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch)
	go func() {
		for s := range ch {
			if s != syscall.SIGURG {
				log.Printf("Received signal %s\n", s)
			}
			switch s {
			case syscall.SIGABRT, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM:
				cancel()
				return
			}
		}
	}()
}

func buildReader() (r io.Reader, err error) {
	if len(*inputPath) <= 0 {
		return nil, errors.New("use -i to indicate an input path")
	}

	u, err := url.Parse(*inputPath)
	if err != nil {
		return nil, fmt.Errorf("demuxfs: parsing input path failed: %w", err)
	}

	switch u.Scheme {
	case "udp":
		addr, err := net.ResolveUDPAddr("udp", u.Host)
		if err != nil {
			return nil, fmt.Errorf("demuxfs: resolving udp addr %s failed: %w", u.Host, err)
		}
		c, err := net.ListenMulticastUDP("udp", nil, addr)
		if err != nil {
			return nil, fmt.Errorf("demuxfs: listening on multicast udp addr %s failed: %w", u.Host, err)
		}
		c.SetReadBuffer(4096)
		return c, nil
	default:
		f, err := os.Open(*inputPath)
		if err != nil {
			return nil, fmt.Errorf("demuxfs: opening %s failed: %w", *inputPath, err)
		}
		return f, nil
	}
}
