package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jimezsa/jobmine/internal/config"
	"github.com/jimezsa/jobmine/internal/network"
)

type ProxiesCmd struct {
	Check ProxyCheckCmd `cmd:"" help:"Open the portal through each proxy in a browser session."`
}

type ProxyCheckCmd struct {
	Target  string `help:"Target URL (default: portal base URL)."`
	Timeout int    `help:"Timeout in seconds." default:"15"`
}

type ProxyCheckResult struct {
	Proxy     string `json:"proxy"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

func (p *ProxyCheckCmd) Run(ctx *Context) error {
	proxies, err := config.LoadProxies("")
	if err != nil {
		return err
	}
	if len(proxies) == 0 {
		return fmt.Errorf("no proxies configured")
	}

	target := strings.TrimSpace(p.Target)
	if target == "" {
		target = ctx.Config.BaseURL
	}
	cfg := ctx.Config
	cfg.WaitTimeoutSeconds = p.Timeout

	results := make([]ProxyCheckResult, 0, len(proxies))
	for _, proxy := range proxies {
		results = append(results, checkProxy(ctx, cfg, proxy, target))
	}
	return writeProxyResults(ctx, results)
}

func checkProxy(ctx *Context, cfg config.Config, proxy string, target string) ProxyCheckResult {
	result := ProxyCheckResult{Proxy: proxy, Status: "error"}

	rotator, err := network.NewRotator([]string{proxy}, network.DefaultBanDuration)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	launcher, err := ctx.Launch(cfg, rotator, ctx.Logger)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer launcher.Close()

	runCtx, cancel := context.WithTimeout(context.Background(), cfg.WaitTimeout())
	defer cancel()
	session, err := launcher.NewSession(runCtx)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer session.Close()

	start := time.Now()
	status, err := session.Navigate(target)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.LatencyMS = time.Since(start).Milliseconds()
	result.Status = strconv.Itoa(status)
	return result
}

func writeProxyResults(ctx *Context, results []ProxyCheckResult) error {
	if ctx.JSONOutput {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if ctx.PlainText {
		for _, res := range results {
			line := []string{res.Proxy, res.Status, strconv.FormatInt(res.LatencyMS, 10), res.Error}
			fmt.Fprintln(ctx.Out, strings.Join(line, "\t"))
		}
		return nil
	}

	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "proxy\tstatus\tlatency_ms\terror")
	for _, res := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", res.Proxy, res.Status, res.LatencyMS, res.Error)
	}
	return tw.Flush()
}
