package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

const usage = `Usage: cli <command> [arguments]
Commands:
  create <user_id>        create a payment and wait for approval
  get <id1,id2,...>       stream the payments of several users
  show <user_id>          show one user's payment
  ids                     list user ids with a payment
Environment:
  PAYFLOW_URL             server base URL (default http://localhost:3000)`

var (
	okColor    = color.New(color.FgGreen, color.Bold)
	warnColor  = color.New(color.FgYellow)
	errColor   = color.New(color.FgRed, color.Bold)
	labelColor = color.New(color.FgCyan)
)

type paymentView struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Status string `json:"status"`
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Title   string          `json:"title"`
	Detail  string          `json:"detail"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		return
	}
	base := os.Getenv("PAYFLOW_URL")
	if base == "" {
		base = "http://localhost:3000"
	}
	c := &client{base: strings.TrimRight(base, "/"), http: &http.Client{Timeout: 2 * time.Minute}}

	var err error
	switch cmd := os.Args[1]; cmd {
	case "create":
		if len(os.Args) < 3 {
			fmt.Println("Usage: create <user_id>")
			return
		}
		err = c.create(os.Args[2])
	case "get":
		if len(os.Args) < 3 {
			fmt.Println("Usage: get <id1,id2,...>")
			return
		}
		err = c.get(os.Args[2])
	case "show":
		if len(os.Args) < 3 {
			fmt.Println("Usage: show <user_id>")
			return
		}
		err = c.show(os.Args[2])
	case "ids":
		err = c.ids()
	default:
		fmt.Println("Unknown command:", cmd)
		fmt.Println(usage)
		os.Exit(2)
	}
	if err != nil {
		errColor.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type client struct {
	base string
	http *http.Client
}

func (c *client) create(userID string) error {
	body, _ := json.Marshal(map[string]string{"userId": userID})
	warnColor.Printf("Waiting for approval of %s...\n", userID)
	start := time.Now()
	resp, err := c.http.Post(c.base+"/payments", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck
	var p paymentView
	if err := decode(resp, &p); err != nil {
		return err
	}
	okColor.Printf("Payment approved in %s\n", time.Since(start).Round(time.Millisecond))
	printPayment(p)
	return nil
}

func (c *client) get(ids string) error {
	req, err := http.NewRequest(http.MethodGet, c.base+"/payments/users?ids="+url.QueryEscape(ids), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/x-ndjson")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return decode(resp, nil)
	}
	n := 0
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var p paymentView
		if err := json.Unmarshal(scanner.Bytes(), &p); err != nil {
			return err
		}
		printPayment(p)
		n++
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	labelColor.Printf("%d payment(s) found\n", n)
	return nil
}

func (c *client) show(userID string) error {
	resp, err := c.http.Get(c.base + "/payments/" + url.PathEscape(userID))
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck
	var p paymentView
	if err := decode(resp, &p); err != nil {
		return err
	}
	printPayment(p)
	return nil
}

func (c *client) ids() error {
	resp, err := c.http.Get(c.base + "/payments/ids")
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return decode(resp, nil)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		warnColor.Println("No payments yet")
		return nil
	}
	for _, id := range strings.Split(string(raw), ",") {
		fmt.Println(id)
	}
	return nil
}

// decode reads the response envelope into data, or turns a problem response into an error.
func decode(resp *http.Response, data any) error {
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s: %w", resp.Status, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s: %s", resp.Status, env.Title, env.Detail)
	}
	if data == nil {
		return nil
	}
	return json.Unmarshal(env.Data, data)
}

func printPayment(p paymentView) {
	status := warnColor.Sprint(p.Status)
	if p.Status == "APPROVED" {
		status = okColor.Sprint(p.Status)
	}
	fmt.Printf("%s %s  %s %s  %s %s\n",
		labelColor.Sprint("user:"), p.UserID,
		labelColor.Sprint("id:"), p.ID,
		labelColor.Sprint("status:"), status,
	)
}
