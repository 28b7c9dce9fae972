// Command objcore-fileserver publishes an in-memory File Root behind a
// Stream Table and drives one client/server request loop against it, the
// role the teacher's cmd/ublk-mem plays for its memory-backed block device:
// a minimal, runnable demonstration of the core it sits on top of.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/objcore/kernel/logging"
	"github.com/objcore/kernel/memory"
	"github.com/objcore/kernel/object"
	"github.com/objcore/kernel/streamtable"
	"github.com/objcore/kernel/ticket"
	"github.com/objcore/kernel/wire"
)

func main() {
	var (
		poolPages     = flag.Int("pool-pages", 4, "Pages backing the Stream Table's buffer pool")
		blockSizeLog2 = flag.Uint("block-size-log2", 6, "log2 of the buffer pool's block size in bytes")
		verbose       = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.New(logConfig)
	logging.SetDefault(logger)

	bufferMem, err := memory.NewAnonymous(*poolPages, wire.R|wire.W)
	if err != nil {
		logger.Error("failed to allocate stream table buffer pool", "error", err)
		os.Exit(1)
	}
	defer bufferMem.Close()

	table, err := streamtable.NewTable(bufferMem, *blockSizeLog2, 1<<20, true)
	if err != nil {
		logger.Error("failed to create stream table", "error", err)
		os.Exit(1)
	}
	defer table.Close()

	fa := memory.NewFrameAllocator(1024)
	root := object.NewFileRoot(fa)
	server := streamtable.NewServer(table, root)

	quit := make(chan struct{})
	done := make(chan struct{})
	go runServer(server, table, quit, done)

	logger.Info("stream table file server ready",
		"pool_pages", *poolPages,
		"block_size", 1<<*blockSizeLog2)

	if err := runDemo(logger, table.Public()); err != nil {
		logger.Error("demo round trip failed", "error", err)
	}

	fmt.Printf("Press Ctrl+C to stop...\n")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")
	close(quit)
	table.Shutdown()
	select {
	case <-done:
	case <-time.After(time.Second):
		logger.Info("server loop shutdown timeout, forcing exit")
	}
}

// runServer blocks on the table's Notify endpoint (signaled once per
// submitted request) and drains whatever is queued each time it wakes,
// until quit is closed or Notify.Read itself errors out from under a
// Shutdown.
func runServer(server *streamtable.Server, table *streamtable.Table, quit, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-quit:
			return
		default:
		}
		if _, err := ticket.Wait(table.Notify().Read(1)); err != nil {
			return
		}
		server.Serve()
	}
}

// runDemo exercises the full request/response loop end to end: create a
// file, write to it, seek back to the start, read the bytes back, and tear
// it down again.
func runDemo(logger *logging.Logger, client object.Object) error {
	fileObj, err := ticket.Wait(client.Create([]byte("greeting.txt")))
	if err != nil {
		return err
	}
	defer fileObj.Close()

	n, err := ticket.Wait(fileObj.Write([]byte("hello, stream table")))
	if err != nil {
		return err
	}
	logger.Info("wrote file", "bytes", n)

	if _, err := ticket.Wait(fileObj.Seek(wire.SeekFrom{Origin: wire.SeekStart})); err != nil {
		return err
	}

	data, err := ticket.Wait(fileObj.Read(64))
	if err != nil {
		return err
	}
	logger.Info("read file back", "contents", string(data))

	if _, err := ticket.Wait(client.Destroy([]byte("greeting.txt"))); err != nil {
		return err
	}
	logger.Info("destroyed file")
	return nil
}
