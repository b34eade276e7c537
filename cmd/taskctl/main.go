package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// taskctl drives the task API from the command line:
//
//	taskctl -user u1 -type render -source s3://in.mp4 submit
//	taskctl -id <global_task_id> get|start
//	taskctl -id <global_task_id> -result s3://out.mp4 complete
func main() {
	var (
		addr    = flag.String("addr", "http://localhost:8080", "API base address")
		id      = flag.String("id", "", "Global task id")
		user    = flag.String("user", "", "User UUID (submit)")
		typ     = flag.String("type", "", "Task type (submit)")
		source  = flag.String("source", "", "Source file (submit)")
		result  = flag.String("result", "", "Result file (complete)")
		timeout = flag.Duration("timeout", 5*time.Second, "Request timeout")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fail("usage: taskctl [flags] submit|get|start|complete")
	}

	base := *addr + "/api/v1/tasks"
	client := &http.Client{Timeout: *timeout}

	var (
		method = http.MethodGet
		url    string
		body   any
	)
	switch flag.Arg(0) {
	case "submit":
		method, url = http.MethodPost, base
		body = map[string]string{"user_uuid": *user, "task_type": *typ, "source_file": *source}
	case "get":
		url = base + "/" + requireID(*id)
	case "start":
		method, url = http.MethodPut, base+"/"+requireID(*id)+"/start"
	case "complete":
		method, url = http.MethodPut, base+"/"+requireID(*id)+"/complete"
		body = map[string]string{"result_file": *result}
	default:
		fail("unknown command %q", flag.Arg(0))
	}

	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		fail("%v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		fail("%v", err)
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	fmt.Printf("%d %s", resp.StatusCode, out)
	if resp.StatusCode >= 300 {
		os.Exit(1)
	}
}

func requireID(id string) string {
	if id == "" {
		fail("missing -id")
	}
	return id
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}
