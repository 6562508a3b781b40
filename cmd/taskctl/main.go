package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/taskd-io/taskd/internal/config"
	"github.com/taskd-io/taskd/internal/logbuf"
	"github.com/taskd-io/taskd/pkg/protocol"
)

func main() {
	addr := flag.String("addr", envOr("TASKD_ADDR", "http://localhost:8000"), "taskd address")
	timeout := flag.Duration("timeout", 3*time.Minute, "Request timeout")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(0)
	}
	c := newClient(*addr, *timeout)

	switch args[0] {
	case "ask":
		requireArgs(args, 2, "taskctl ask <prompt>")
		cmdAsk(c, strings.Join(args[1:], " "))
	case "run":
		requireArgs(args, 2, "taskctl run <instruction>")
		cmdRun(c, strings.Join(args[1:], " "))
	case "read":
		requireArgs(args, 2, "taskctl read <path>")
		cmdRead(c, args[1])
	case "tasks":
		cmdTasks(c)
	case "health":
		cmdHealth(c)
	case "logs":
		cmdLogs(c, args[1:])
	case "config":
		if len(args) < 3 || args[1] != "validate" {
			fmt.Fprintln(os.Stderr, "usage: taskctl config validate <path>")
			os.Exit(1)
		}
		cmdConfigValidate(args[2])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func requireArgs(args []string, n int, usage string) {
	if len(args) < n {
		fmt.Fprintln(os.Stderr, "usage: "+usage)
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func cmdAsk(c *client, prompt string) {
	body, err := c.get("/ask", url.Values{"prompt": {prompt}})
	if err != nil {
		fail(err)
	}
	var res struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		fail(err)
	}
	fmt.Println(res.Name)
	fmt.Println(prettyJSON([]byte(res.Arguments)))
}

func cmdRun(c *client, instruction string) {
	body, err := c.post("/run", url.Values{"task": {instruction}})
	if err != nil {
		fail(err)
	}
	var res map[string]string
	json.Unmarshal(body, &res)
	fmt.Println(res["message"])
}

func cmdRead(c *client, path string) {
	body, err := c.get("/read", url.Values{"path": {path}})
	if err != nil {
		fail(err)
	}
	os.Stdout.Write(body)
	fmt.Fprintf(os.Stderr, "(%s)\n", humanize.Bytes(uint64(len(body))))
}

func cmdTasks(c *client) {
	body, err := c.get("/tasks", nil)
	if err != nil {
		fail(err)
	}
	var descs []protocol.TaskDescriptor
	if err := json.Unmarshal(body, &descs); err != nil {
		fail(err)
	}
	for _, d := range descs {
		names := make([]string, len(d.Params))
		for i, p := range d.Params {
			names[i] = p.Name
		}
		fmt.Printf("%-22s %-40s %s\n", d.Name, strings.Join(names, ","), d.Description)
	}
}

func cmdHealth(c *client) {
	body, err := c.get("/health", nil)
	if err != nil {
		fail(err)
	}
	fmt.Println(string(body))
}

func cmdLogs(c *client, args []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	level := fs.String("level", "", "Minimum level (debug|info|warn|error)")
	component := fs.String("component", "", "Only entries from this component")
	limit := fs.Int("limit", 50, "Max entries")
	fs.Parse(args)

	q := url.Values{"limit": {strconv.Itoa(*limit)}}
	if *level != "" {
		q.Set("level", *level)
	}
	if *component != "" {
		q.Set("component", *component)
	}

	body, err := c.get("/logs", q)
	if err != nil {
		fail(err)
	}
	var entries []logbuf.Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		fail(err)
	}
	for _, e := range entries {
		fmt.Printf("%-14s %-5s %-8s %s\n", humanize.Time(e.Time), e.Level, e.Component, e.Message)
	}
}

func cmdConfigValidate(path string) {
	if _, err := config.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("config is valid")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Println("taskctl - taskd client")
	fmt.Println()
	fmt.Println("Usage: taskctl [-addr URL] <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  ask <prompt>         Show which task an instruction maps to")
	fmt.Println("  run <instruction>    Classify and execute an instruction")
	fmt.Println("  read <path>          Print a file through the daemon")
	fmt.Println("  tasks                List the task catalog")
	fmt.Println("  health               Check daemon health")
	fmt.Println("  logs                 Recent log entries (--level, --component, --limit)")
	fmt.Println("  config validate <p>  Validate config file")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  TASKD_ADDR   Daemon URL (default: http://localhost:8000)")
}
