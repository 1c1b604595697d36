package mcp

import (
	"context"
	"os"
	"time"

	"stcgate/internal/logging"
)

// WatchParent calls cancel when the process that launched this server goes
// away (the editor closed or restarted its extension host), so stdio servers
// do not linger as orphans.
//
// It must not read stdin: the SDK's StdioTransport owns it, and any byte
// taken here would corrupt the JSON-RPC stream.
func WatchParent(ctx context.Context, cancel context.CancelFunc) {
	ppid := os.Getppid()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
				if os.Getppid() != ppid {
					logging.New("mcp").Warn("parent process exited, shutting down", "ppid", ppid)
					cancel()
					return
				}
			}
		}
	}()
}
