// Command demuxfs-probe feeds a transport stream through a demuxfs.Engine
// and dumps the resulting dentry tree to stdout, either as an indented
// listing or as JSON.
package main

import (
	"context"
	"encoding/json"
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

	"github.com/pkg/profile"

	"github.com/leandrotsampa/demuxfs"
)

var (
	ctx, cancel     = context.WithCancel(context.Background())
	cpuProfiling    = flag.Bool("cp", false, "if yes, cpu profiling is enabled")
	format          = flag.String("f", "", "the output format (json or tree)")
	inputPath       = flag.String("i", "", "the input path")
	memoryProfiling = flag.Bool("mp", false, "if yes, memory profiling is enabled")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	handleSignals()

	if *cpuProfiling {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	} else if *memoryProfiling {
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	}

	r, err := buildReader(ctx)
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
	if err := in.Run(); err != nil && !errors.Is(err, demuxfs.ErrNoMorePackets) {
		log.Fatal(fmt.Errorf("demuxfs: ingesting failed: %w", err))
	}

	switch *format {
	case "json":
		e := json.NewEncoder(os.Stdout)
		e.SetIndent("", "  ")
		if err := e.Encode(dump(eng.Root())); err != nil {
			log.Fatal(fmt.Errorf("demuxfs: json encoding to stdout failed: %w", err))
		}
	default:
		printTree(eng.Root(), 0)
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

func buildReader(ctx context.Context) (r io.Reader, err error) {
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

// node is a JSON-friendly projection of a *demuxfs.Dentry subtree.
type node struct {
	Name     string  `json:"name"`
	Mode     string  `json:"mode"`
	Target   string  `json:"target,omitempty"`
	Content  string  `json:"content,omitempty"`
	Children []*node `json:"children,omitempty"`
}

func dump(d *demuxfs.Dentry) *node {
	n := &node{Name: d.Name(), Mode: d.Mode().String()}
	switch d.Mode() {
	case demuxfs.ModeSymlink:
		n.Target = d.SymlinkTarget()
	case demuxfs.ModeFile:
		n.Content = string(d.Content())
	default:
		for _, c := range d.Children() {
			n.Children = append(n.Children, dump(c))
		}
	}
	return n
}

func printTree(d *demuxfs.Dentry, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	switch d.Mode() {
	case demuxfs.ModeSymlink:
		fmt.Printf("%s%s -> %s\n", indent, d.Name(), d.SymlinkTarget())
	case demuxfs.ModeFile:
		fmt.Printf("%s%s = %q\n", indent, d.Name(), d.Content())
	default:
		fmt.Printf("%s%s/\n", indent, d.Name())
		for _, c := range d.Children() {
			printTree(c, depth+1)
		}
	}
}
