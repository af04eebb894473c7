package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/tsc-client/internal/apiclient"
	"github.com/park285/tsc-client/internal/config"
	"github.com/park285/tsc-client/internal/realtime"
	"github.com/park285/tsc-client/pkg/tscproto"
)

// tsccheck verifies the HTTP and realtime endpoints with a credential taken
// from TSC_CREDENTIAL and prints every event seen during a short window.
func main() {
	baseURL := strings.TrimRight(os.Getenv("TSC_BASE_URL"), "/")
	wsURL := os.Getenv("TSC_WS_URL")
	credential := strings.TrimSpace(os.Getenv("TSC_CREDENTIAL"))

	if baseURL == "" {
		log.Fatal("TSC_BASE_URL is required")
	}
	if credential == "" {
		log.Fatal("TSC_CREDENTIAL is required")
	}
	if wsURL == "" {
		derived, err := config.DeriveWSURL(baseURL)
		if err != nil {
			log.Fatalf("derive ws url: %v", err)
		}
		wsURL = derived
	}

	client := apiclient.NewClient(baseURL, apiclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	me, err := client.Me(ctx, credential)
	if err != nil {
		log.Printf("/api/me error: %v", err)
	} else {
		log.Printf("/api/me ok: id=%d username=%s rating=%d", me.ID, me.Username, me.Rating)
	}

	ch := realtime.NewChannel(wsURL)
	ch.OnStateChange(func(state realtime.State) {
		log.Printf("WS state: %s", state)
	})
	for _, kind := range tscproto.InboundKinds {
		_ = ch.Subscribe(kind, func(data json.RawMessage) {
			fmt.Printf("WS event type=%s data=%s\n", kind, truncate(string(data), 256))
		})
	}

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ch.Connect(cctx, credential); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}

	// Observe for a short window
	t := time.NewTimer(10 * time.Second)
	<-t.C

	_ = ch.Close(context.Background())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
