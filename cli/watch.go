package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xiaot623/lifeline/internal/hub"
)

// watchURL turns the service base URL into the watch websocket address.
func watchURL(server, reportID string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(server, "/"))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/api/emergency/calls/watch"
	if reportID != "" {
		u.RawQuery = url.Values{"report_id": {reportID}}.Encode()
	}
	return u.String(), nil
}

func runWatch(ctx context.Context, opts *cliOptions, reportID string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr, err := watchURL(opts.server, reportID)
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	}()

	fmt.Fprintf(opts.out, "Watching %s\n", addr)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		var update hub.CallUpdate
		if err := json.Unmarshal(data, &update); err != nil {
			fmt.Fprintf(opts.out, "? %s\n", data)
			continue
		}
		printUpdate(opts, update)
	}
}

func printUpdate(opts *cliOptions, u hub.CallUpdate) {
	ts := time.UnixMilli(u.Ts).Format(time.TimeOnly)
	switch {
	case u.Event.Digit != "":
		fmt.Fprintf(opts.out, "%s %s %s pressed %s\n", ts, u.Session.ProviderCallID, u.Session.ContactName, u.Event.Digit)
	default:
		fmt.Fprintf(opts.out, "%s %s %s %s -> %s\n", ts, u.Session.ProviderCallID, u.Session.ContactName, u.Event.From, u.Event.To)
	}
}
