package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"gitlab.com/dirk.krummacker/contact-intake/internal/client"
)

// Usage example on the command line:
// > go run main.go -url=http://localhost:3001 -timeout=2m
func main() {
	urlPtr := flag.String("url", "http://localhost:3001", "base URL of the service")
	intervalPtr := flag.Duration("interval", 5*time.Second, "wait time between attempts")
	timeoutPtr := flag.Duration("timeout", 0, "give up after this duration, 0 waits forever")
	flag.Parse()

	ctx := context.Background()
	if *timeoutPtr > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeoutPtr)
		defer cancel()
	}

	c := client.New(*urlPtr, nil)
	var totalWaitTime time.Duration
	for {
		h, err := c.Health(ctx)
		if err == nil && h.DB == "ok" {
			fmt.Printf("service available after %s\n", totalWaitTime)
			return
		}
		if err != nil {
			fmt.Println(err)
		} else {
			fmt.Printf("service up, database %s\n", h.DB)
		}

		select {
		case <-ctx.Done():
			fmt.Println("gave up waiting:", ctx.Err())
			os.Exit(1)
		case <-time.After(*intervalPtr):
		}
		totalWaitTime += *intervalPtr
		fmt.Printf("Waiting %s\n", totalWaitTime)
	}
}
