// printer-sim accepts raw receipt connections the way a network thermal
// printer does and echoes what it receives, so the register can be
// exercised without hardware.
package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"

	goeen_log "github.com/eencloud/goeen/log"
)

func main() {
	addr := flag.String("addr", ":9100", "listen address")
	quiet := flag.Bool("quiet", false, "count receipts without echoing them")
	flag.Parse()

	logger := goeen_log.NewContext(os.Stdout, "", goeen_log.LevelInfo).GetLogger("printer-sim", goeen_log.LevelInfo)

	listener, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatalf("Failed to listen on %s: %v", *addr, err)
	}
	logger.Infof("Printer simulator listening on %s", listener.Addr())

	receipts := 0
	for {
		conn, err := listener.Accept()
		if err != nil {
			logger.Errorf("Accept failed: %v", err)
			continue
		}

		data, err := io.ReadAll(conn)
		_ = conn.Close()
		if err != nil {
			logger.Errorf("Read failed: %v", err)
			continue
		}

		receipts++
		logger.Infof("Receipt #%d from %s (%d bytes)", receipts, conn.RemoteAddr(), len(data))
		if !*quiet {
			fmt.Println("----------------------------------------")
			fmt.Print(string(data))
			fmt.Println("----------------------------------------")
		}
	}
}
