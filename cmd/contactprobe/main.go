// Command contactprobe dispara envios de teste contra um contactd para
// conferir na prática o limite por cliente (o 6º POST da janela deve dar 429).
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Gilmore369/tesis-profesorg/internal/contact"
)

type probeOptions struct {
	URL      string
	Count    int
	ClientIP string
	Interval time.Duration
	Timeout  time.Duration
}

// probeResult é uma linha do relatório.
type probeResult struct {
	Status     int
	Remaining  string
	RetryAfter string
	Code       string
}

func main() {
	opts := probeOptions{}
	cmd := &cobra.Command{
		Use:          "contactprobe",
		Short:        "Send test submissions to a contactd endpoint and report the rate limit",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := &http.Client{Timeout: opts.Timeout}
			_, err := probe(cmd.Context(), client, opts, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().StringVar(&opts.URL, "url", "http://localhost:8080/api/contact", "contact endpoint")
	cmd.Flags().IntVarP(&opts.Count, "count", "n", 6, "number of POSTs")
	cmd.Flags().StringVar(&opts.ClientIP, "ip", "", "value sent in X-Forwarded-For (empty sends none)")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "pause between POSTs")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "per-request timeout")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func sampleBody(i int) []byte {
	b, _ := json.Marshal(map[string]string{
		"nombre":  "Prueba contactprobe",
		"correo":  "probe@example.com",
		"mensaje": fmt.Sprintf("Mensaje de prueba número %d del probe", i),
		"tipo":    contact.TipoOtro,
		"source":  "contactprobe",
	})
	return b
}

func probe(ctx context.Context, client *http.Client, opts probeOptions, out io.Writer) ([]probeResult, error) {
	results := make([]probeResult, 0, opts.Count)
	for i := 1; i <= opts.Count; i++ {
		if i > 1 && opts.Interval > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(opts.Interval):
			}
		}

		res, err := postOnce(ctx, client, opts, i)
		if err != nil {
			return results, fmt.Errorf("request %d: %w", i, err)
		}
		results = append(results, res)

		fmt.Fprintf(out, "#%d status=%d remaining=%s", i, res.Status, res.Remaining)
		if res.Code != "" {
			fmt.Fprintf(out, " code=%s", res.Code)
		}
		if res.RetryAfter != "" {
			fmt.Fprintf(out, " retryAfter=%ss", res.RetryAfter)
		}
		fmt.Fprintln(out)
	}
	return results, nil
}

func postOnce(ctx context.Context, client *http.Client, opts probeOptions, i int) (probeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(sampleBody(i)))
	if err != nil {
		return probeResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if opts.ClientIP != "" {
		req.Header.Set("X-Forwarded-For", opts.ClientIP)
	}

	resp, err := client.Do(req)
	if err != nil {
		return probeResult{}, err
	}
	defer resp.Body.Close()

	res := probeResult{
		Status:     resp.StatusCode,
		Remaining:  resp.Header.Get("X-RateLimit-Remaining"),
		RetryAfter: resp.Header.Get("Retry-After"),
	}
	if resp.StatusCode != http.StatusOK {
		var body contact.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
			res.Code = body.Error.Code
		}
	}
	return res, nil
}
