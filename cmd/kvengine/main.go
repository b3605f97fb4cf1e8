// Command kvengine is a line-oriented REPL over the storage engine:
// put/get/del/flush/list/sync/stats, plus help and exit/quit.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/kvengine/kvengine/internal/applog"
	"github.com/kvengine/kvengine/internal/config"
	"github.com/kvengine/kvengine/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	dataDir := flag.String("data-dir", "", "directory the engine stores its WAL and SSTables in (overrides config)")
	flushBytes := flag.Int64("flush-bytes", 0, "memtable flush threshold in bytes (overrides config)")
	configPath := flag.String("config", "", "optional YAML config file with data_dir/flush_bytes")
	debug := flag.Bool("debug", false, "enable debug-level logging")
	flag.Parse()

	log, err := applog.New(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *flushBytes > 0 {
		cfg.FlushBytes = *flushBytes
	}

	db, err := storage.Open(cfg.DataDir, storage.EngineConfig{
		FlushBytes: cfg.FlushBytes,
		Logger:     log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open engine: %v\n", err)
		return 1
	}
	defer db.Close()

	fmt.Println("KV REPL ready. Type 'help'.")
	repl(db, os.Stdin, os.Stdout)
	return 0
}

func repl(db *storage.Engine, in *os.File, out *os.File) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "help":
			printHelp(out)
		case "exit", "quit":
			return
		case "put":
			handlePut(db, out, scanner.Text())
		case "get":
			handleGet(db, out, args)
		case "del":
			handleDel(db, out, args)
		case "flush":
			if err := db.Flush(); err != nil {
				fmt.Fprintf(out, "ERR %v\n", err)
			} else {
				fmt.Fprintln(out, "OK")
			}
		case "list":
			handleList(db, out)
		case "sync":
			if err := db.Sync(); err != nil {
				fmt.Fprintf(out, "ERR %v\n", err)
			} else {
				fmt.Fprintln(out, "OK")
			}
		case "stats":
			handleStats(db, out)
		default:
			fmt.Fprintf(out, "unknown: %s (try 'help')\n", cmd)
		}
	}
}

func printHelp(out *os.File) {
	fmt.Fprint(out, `Commands:
  put <key> <value...>
  get <key>
  del <key>
  flush           # force flush MemTable -> SSTable
  list            # list SSTables
  sync            # fsync WAL
  stats           # mem size/bytes
  help
  exit | quit
`)
}

func handlePut(db *storage.Engine, out *os.File, line string) {
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "put"))
	keyEnd := strings.IndexAny(rest, " \t")
	if rest == "" || keyEnd == -1 {
		fmt.Fprintln(out, "usage: put <key> <value>")
		return
	}
	key := rest[:keyEnd]
	value := strings.TrimLeft(rest[keyEnd:], " \t")

	if err := db.Put([]byte(key), []byte(value)); err != nil {
		fmt.Fprintf(out, "ERR %v\n", err)
		return
	}
	fmt.Fprintln(out, "OK")
}

func handleGet(db *storage.Engine, out *os.File, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(out, "usage: get <key>")
		return
	}
	v, found := db.Get([]byte(args[0]))
	if !found {
		fmt.Fprintln(out, "(nil)")
		return
	}
	fmt.Fprintln(out, string(v))
}

func handleDel(db *storage.Engine, out *os.File, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(out, "usage: del <key>")
		return
	}
	if err := db.Del([]byte(args[0])); err != nil {
		fmt.Fprintf(out, "ERR %v\n", err)
		return
	}
	fmt.Fprintln(out, "OK")
}

func handleList(db *storage.Engine, out *os.File) {
	tables := db.ListTables()
	if len(tables) == 0 {
		fmt.Fprintln(out, "(no sstables)")
		return
	}
	for _, t := range tables {
		fmt.Fprintf(out, "%s  file_id=%06d  index_entries=%d\n", t.Path, t.FileID, t.IndexEntries)
	}
}

func handleStats(db *storage.Engine, out *os.File) {
	s := db.Stats()
	fmt.Fprintf(out, "mem.entries=%d mem.bytes=%d sstables=%d puts=%d dels=%d gets=%d hits=%d flushes=%d\n",
		s.MemTableEntries, s.MemTableBytes, s.SSTableCount, s.Puts, s.Dels, s.Gets, s.Hits, s.Flushes)
}
