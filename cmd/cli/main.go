package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "tenants":
		listTenants(args)
	case "groups":
		listGroups(args)
	case "profiles":
		handleProfiles(args)
	case "tests":
		handleTests(args)
	case "health":
		checkHealth(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: audiometry auth <login|logout|who>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", subCmd)
	}
}

func handleProfiles(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: audiometry profiles <list|search|show>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listProfiles(args[1:])
	case "search":
		searchProfiles(args[1:])
	case "show":
		showProfile(args[1:])
	default:
		fmt.Printf("unknown profiles command: %s\n", subCmd)
	}
}

func handleTests(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: audiometry tests submit")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "submit":
		submitTest(args[1:])
	default:
		fmt.Printf("unknown tests command: %s\n", subCmd)
	}
}

// Auth commands
func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("username", "", "username")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *username == "" || *password == "" {
		fmt.Println("Error: username and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"username": *username, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/login", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		if token, ok := result["token"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s\n", *username)
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logoutUser() {
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	token := loadToken()
	if token == "" {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("✓ Logged in (token: %s...)\n", token[:20])
}

// Tenant commands
func listTenants(args []string) {
	_ = args
	body, ok := getJSON(getAPIURL() + "/tenants")
	if !ok {
		return
	}

	tenants, _ := body["tenants"].([]interface{})
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tINDUSTRY\tACTIVE")
	for _, item := range tenants {
		t := item.(map[string]interface{})
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", t["id"], t["name"], t["industry"], t["active"])
	}
	w.Flush()
}

// Group commands
func listGroups(args []string) {
	fs := flag.NewFlagSet("groups", flag.ExitOnError)
	tenant := fs.String("tenant", "", "tenant ID")
	fs.Parse(args)

	if *tenant == "" {
		fmt.Println("Error: -tenant is required")
		return
	}

	body, ok := getJSON(getAPIURL() + "/api/" + *tenant + "/groups")
	if !ok {
		return
	}

	groups, _ := body["groups"].([]interface{})
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMPLOYEES\tRISK")
	for _, item := range groups {
		g := item.(map[string]interface{})
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", g["id"], g["name"], g["employee_count"], g["risk_level"])
	}
	w.Flush()
}

// Profile commands
func listProfiles(args []string) {
	fs := flag.NewFlagSet("profiles list", flag.ExitOnError)
	tenant := fs.String("tenant", "", "tenant ID")
	group := fs.String("group", "", "group ID")
	fs.Parse(args)

	if *tenant == "" || *group == "" {
		fmt.Println("Error: -tenant and -group are required")
		return
	}

	body, ok := getJSON(getAPIURL() + "/api/" + *tenant + "/groups/" + *group + "/profiles")
	if !ok {
		return
	}
	printProfiles(body["profiles"])
}

func searchProfiles(args []string) {
	fs := flag.NewFlagSet("profiles search", flag.ExitOnError)
	tenant := fs.String("tenant", "", "tenant ID")
	query := fs.String("q", "", "search query")
	fs.Parse(args)

	if *tenant == "" || *query == "" {
		fmt.Println("Error: -tenant and -q are required")
		return
	}

	body, ok := getJSON(getAPIURL() + "/api/" + *tenant + "/profiles/search?q=" + *query)
	if !ok {
		return
	}
	printProfiles(body["profiles"])
}

func printProfiles(v interface{}) {
	profiles, _ := v.([]interface{})
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMPLOYEE\tNAME\tDEPARTMENT\tLAST TEST")
	for _, item := range profiles {
		p := item.(map[string]interface{})
		fmt.Fprintf(w, "%v\t%v\t%v %v\t%v\t%v\n",
			p["id"], p["employee_id"], p["first_name"], p["last_name"], p["department"], p["last_test_date"])
	}
	w.Flush()
}

func showProfile(args []string) {
	fs := flag.NewFlagSet("profiles show", flag.ExitOnError)
	tenant := fs.String("tenant", "", "tenant ID")
	profile := fs.String("profile", "", "profile ID")
	fs.Parse(args)

	if *tenant == "" || *profile == "" {
		fmt.Println("Error: -tenant and -profile are required")
		return
	}

	body, ok := getJSON(getAPIURL() + "/api/" + *tenant + "/profiles/" + *profile)
	if !ok {
		return
	}

	out, _ := json.MarshalIndent(body, "", "  ")
	fmt.Println(string(out))
}

// Test commands
func submitTest(args []string) {
	fs := flag.NewFlagSet("tests submit", flag.ExitOnError)
	tenant := fs.String("tenant", "", "tenant ID")
	profile := fs.String("profile", "", "profile ID")
	file := fs.String("file", "", "JSON file with test_metadata and results")
	fs.Parse(args)

	if *tenant == "" || *profile == "" || *file == "" {
		fmt.Println("Error: -tenant, -profile, and -file are required")
		return
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	url := getAPIURL() + "/api/" + *tenant + "/profiles/" + *profile + "/tests"
	req, _ := http.NewRequest("POST", url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ Test saved: %v (next test due %v)\n", result["test_id"], result["next_test_due"])
	} else {
		fmt.Printf("✗ Submission failed (%d): %v\n", resp.StatusCode, result)
	}
}

func checkHealth(args []string) {
	_ = args
	resp, err := http.Get(getAPIURL() + "/api/health")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	fmt.Printf("status: %v version: %v\n", result["status"], result["version"])
}

// Helper functions
func getJSON(url string) (map[string]interface{}, bool) {
	req, _ := http.NewRequest("GET", url, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return nil, false
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != 200 {
		fmt.Printf("✗ Request failed (%d): %v\n", resp.StatusCode, body)
		return nil, false
	}
	return body, true
}

func getAPIURL() string {
	if url := os.Getenv("AUDIOMETRY_API"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.audiometry/token"
}

func saveToken(token string) error {
	home, _ := os.UserHomeDir()
	os.MkdirAll(home+"/.audiometry", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`Audiometry CLI

Usage:
  audiometry <command> [options]

Commands:
  auth       Authentication (login, logout, who)
  tenants    List tenants the logged-in tester can access
  groups     List employee groups (-tenant)
  profiles   Profile operations (list, search, show)
  tests      Submit hearing test results (submit)
  health     Check API health
  help       Show this help message

Environment Variables:
  AUDIOMETRY_API    API endpoint (default: http://localhost:8080)

Examples:
  audiometry auth login -username admin@hearingtest.com -password secret
  audiometry tenants
  audiometry groups -tenant acme-corp
  audiometry profiles search -tenant acme-corp -q john
  audiometry tests submit -tenant acme-corp -profile emp-001 -file results.json
`)
}
