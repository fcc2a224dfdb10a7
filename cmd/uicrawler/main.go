package main

import (
	"context"
	"uicrawler/cmd/uicrawler/commands"
	"uicrawler/lib/osutil"
)

func main() {
	ctx, cancel := osutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}
