// Command ignite is a thin CLI wrapper over pkg/ignite, for manual
// inspection of a data directory without writing a Go program against the
// library.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ignitekv/ignitekv/pkg/ignite"
	"github.com/ignitekv/ignitekv/pkg/options"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  ignite -dir <path> put <key> <value>\n")
	fmt.Fprintf(os.Stderr, "  ignite -dir <path> get <key>\n")
	fmt.Fprintf(os.Stderr, "  ignite -dir <path> delete <key>\n")
	fmt.Fprintf(os.Stderr, "  ignite -dir <path> recover <wal-file>\n")
	os.Exit(1)
}

func main() {
	args := os.Args[1:]

	dir := "."
	if len(args) >= 2 && args[0] == "-dir" {
		dir = args[1]
		args = args[2:]
	}

	if len(args) < 1 {
		usage()
	}

	ctx := context.Background()
	walPath := dir + "/ignite.wal"

	db, err := ignite.NewInstance(ctx, "ignite-cli",
		options.WithPersistData(true),
		options.WithDataDir(dir),
		options.WithWALPath(walPath),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer db.Close(ctx)

	switch args[0] {
	case "put":
		if len(args) != 3 {
			usage()
		}
		if err := db.Set(ctx, args[1], args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "put failed: %v\n", err)
			os.Exit(1)
		}

	case "get":
		if len(args) != 2 {
			usage()
		}
		v, ok, err := db.Get(ctx, args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "get failed: %v\n", err)
			os.Exit(1)
		}
		if !ok {
			fmt.Println("(not found)")
			return
		}
		fmt.Println(v)

	case "delete":
		if len(args) != 2 {
			usage()
		}
		if err := db.Delete(ctx, args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "delete failed: %v\n", err)
			os.Exit(1)
		}

	case "recover":
		if len(args) != 2 {
			usage()
		}
		if err := db.RecoverFrom(ctx, args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "recover failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("recovered")

	default:
		fmt.Fprintf(os.Stderr, "unknown action %q\n", args[0])
		usage()
	}
}
