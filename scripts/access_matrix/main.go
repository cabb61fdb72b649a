package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type account struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// target lists the status every role should observe on one route. Roles
// missing from Expect are not exercised.
type target struct {
	Method   string         `json:"method"`
	Path     string         `json:"path"`
	Body     any            `json:"body,omitempty"`
	Critical bool           `json:"critical"`
	Expect   map[string]int `json:"expect"`
}

type config struct {
	Accounts map[string]account `json:"accounts"`
	Targets  []target           `json:"targets"`
}

type check struct {
	Target   target
	Role     string
	Expected int
	Actual   int
	Duration time.Duration
	Error    error
}

func (c check) ok() bool { return c.Error == nil && c.Actual == c.Expected }

func main() {
	var (
		base        string
		prefix      string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&prefix, "prefix", "/api/v1", "API route prefix")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "access_matrix", "targets.json"), "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	cfg, err := loadConfig(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	apiBase := strings.TrimRight(base, "/") + prefix

	tokens := make(map[string]string, len(cfg.Accounts))
	for role, acc := range cfg.Accounts {
		token, err := login(client, apiBase, acc)
		if err != nil {
			log.Fatalf("login as %s failed: %v", role, err)
		}
		tokens[role] = token
	}

	var (
		checks   []check
		breaking int
		optional int
	)
	for _, t := range cfg.Targets {
		for _, role := range sortedRoles(t.Expect) {
			token, ok := tokens[role]
			if !ok {
				log.Fatalf("no account configured for role %s", role)
			}
			res := runCheck(client, apiBase, token, role, t)
			if !res.ok() {
				if t.Critical {
					breaking++
				} else {
					optional++
				}
			}
			checks = append(checks, res)
		}
	}

	printReport(checks)

	fmt.Printf("Breaking mismatches: %d, Optional mismatches: %d\n", breaking, optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	for role, acc := range cfg.Accounts {
		if pw := os.Getenv("ACCESS_MATRIX_PASSWORD_" + strings.ToUpper(role)); pw != "" {
			acc.Password = pw
			cfg.Accounts[role] = acc
		}
	}
	return &cfg, nil
}

func login(client *http.Client, apiBase string, acc account) (string, error) {
	payload, err := json.Marshal(map[string]string{"email": acc.Email, "password": acc.Password})
	if err != nil {
		return "", err
	}
	resp, err := client.Post(apiBase+"/auth/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if envelope.Data.AccessToken == "" {
		return "", errors.New("login response carried no access token")
	}
	return envelope.Data.AccessToken, nil
}

func runCheck(client *http.Client, apiBase, token, role string, tgt target) check {
	res := check{Target: tgt, Role: role, Expected: tgt.Expect[role]}

	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var body io.Reader
	if tgt.Body != nil {
		payload, err := json.Marshal(tgt.Body)
		if err != nil {
			res.Error = fmt.Errorf("encode body: %w", err)
			return res
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, apiBase+path, body)
	if err != nil {
		res.Error = err
		return res
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		res.Error = err
		return res
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	res.Duration = time.Since(start)
	res.Actual = resp.StatusCode
	return res
}

func sortedRoles(expect map[string]int) []string {
	roles := make([]string, 0, len(expect))
	for role := range expect {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

func printReport(results []check) {
	fmt.Println("Access Matrix Report")
	fmt.Println("====================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.ok() {
			status = "MISMATCH"
		}
		fmt.Printf("[%s] %-16s %s %s\n", status, res.Role, res.Target.Method, res.Target.Path)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Expected: %d | Actual: %d (%s) | Critical: %t\n", res.Expected, res.Actual, res.Duration, res.Target.Critical)
	}
}
