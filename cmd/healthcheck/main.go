// Command healthcheck probes a running parrotdb instance and exits 0 when
// it is healthy and ready. Intended as a container HEALTHCHECK binary, so
// it stays dependency-light and fast.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/valyala/fasthttp"
)

func main() {
	base := flag.String("url", "http://localhost:8080", "base URL of the parrotdb instance")
	timeout := flag.Duration("timeout", 2*time.Second, "per-probe timeout")
	readiness := flag.Bool("ready", true, "also require /readyz to pass")
	flag.Parse()

	client := &fasthttp.Client{
		ReadTimeout:  *timeout,
		WriteTimeout: *timeout,
	}

	paths := []string{"/healthz"}
	if *readiness {
		paths = append(paths, "/readyz")
	}
	for _, p := range paths {
		if err := probe(client, *base+p, *timeout); err != nil {
			fmt.Fprintf(os.Stderr, "probe %s failed: %v\n", p, err)
			os.Exit(1)
		}
	}
	fmt.Println("ok")
}

func probe(client *fasthttp.Client, url string, timeout time.Duration) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	if err := client.DoTimeout(req, resp, timeout); err != nil {
		return err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode())
	}
	return nil
}
