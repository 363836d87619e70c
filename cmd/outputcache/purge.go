package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	perr "github.com/jmgilman/go/errors"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-output-cache/cache"
	"github.com/goliatone/go-output-cache/httpcache"
	"github.com/goliatone/go-output-cache/internal/cacheinfra"
	"github.com/goliatone/go-output-cache/internal/config"
	ilog "github.com/goliatone/go-output-cache/internal/log"
)

type purgeOptions struct {
	httpcache.InvalidateRequest
	all    bool
	server string
}

func (o *purgeOptions) empty() bool {
	return !o.all && len(o.Tags)+len(o.Routes)+len(o.PrefixRoutes)+len(o.Keys) == 0
}

func newPurgeCommand(root *rootOptions) *cobra.Command {
	opts := &purgeOptions{}
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove cached pages by tag, route, key prefix or key",
		Example: `  outputcache purge --tag p1 --tag c10
  outputcache purge --route Catalog.Category
  outputcache purge --all --server http://localhost:8080`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.empty() {
				return perr.New(perr.CodeInvalidInput, "nothing to purge: pass --tag, --route, --prefix, --key or --all")
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			var removed map[string]int
			var err error
			if opts.server != "" {
				removed, err = purgeRemote(ctx, http.DefaultClient, opts)
			} else {
				var cfg *config.Config
				if cfg, err = root.load(); err != nil {
					return err
				}
				removed, err = purgeLocal(ctx, cfg, opts, ilog.New(cfg.LogLevel))
			}
			if err != nil {
				return err
			}
			printRemoved(cmd.OutOrStdout(), removed)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&opts.Tags, "tag", nil, "purge items carrying the tag (repeatable)")
	f.StringSliceVar(&opts.Routes, "route", nil, "purge items stored for the route (repeatable)")
	f.StringSliceVar(&opts.PrefixRoutes, "prefix", nil, "purge keys under the route prefix (repeatable)")
	f.StringSliceVar(&opts.Keys, "key", nil, "purge a single cache key (repeatable)")
	f.BoolVar(&opts.all, "all", false, "purge every item")
	f.StringVar(&opts.server, "server", "", "base URL of a running server; purges through its admin API")
	return cmd
}

// purgeLocal purges the configured provider directly. The memory provider
// lives inside the server process, so this only reaches a shared store.
func purgeLocal(ctx context.Context, cfg *config.Config, opts *purgeOptions, logger ilog.Logger) (map[string]int, error) {
	if cfg.CacheProvider == cacheinfra.ProviderMemory {
		logger.Info("outputcache.purge.memory", "hint", "memory caches are per process; use --server to purge a running server")
	}
	provider, err := cacheinfra.NewProvider(cfg.CacheConfig(), cacheinfra.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if c, ok := provider.(io.Closer); ok {
		defer c.Close()
	}

	if opts.all {
		n, err := provider.Count(ctx)
		if err != nil {
			return nil, err
		}
		if err := provider.RemoveAll(ctx); err != nil {
			return nil, err
		}
		return map[string]int{"all": n}, nil
	}
	return httpcache.Purge(ctx, provider, cache.NewKeyBuilder(cfg.CacheKeyNamespace), opts.InvalidateRequest)
}

type removedEnvelope struct {
	Data struct {
		Removed json.RawMessage `json:"removed"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// purgeRemote calls the admin API of a running server.
func purgeRemote(ctx context.Context, client *http.Client, opts *purgeOptions) (map[string]int, error) {
	base := strings.TrimRight(opts.server, "/") + "/admin/cache"

	var req *http.Request
	var err error
	if opts.all {
		req, err = http.NewRequestWithContext(ctx, http.MethodDelete, base+"/items", nil)
	} else {
		body, merr := json.Marshal(opts.InvalidateRequest)
		if merr != nil {
			return nil, perr.Wrap(merr, perr.CodeInternal, "encode purge request")
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, base+"/invalidate", bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return nil, perr.Wrap(err, perr.CodeInvalidInput, "build purge request")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, perr.Wrapf(err, perr.CodeNetwork, "purge %s", opts.server)
	}
	defer resp.Body.Close()

	var env removedEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env); err != nil {
		return nil, perr.Wrapf(err, perr.CodeInternal, "decode purge response (status %d)", resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if env.Error != nil {
			return nil, perr.Newf(perr.CodeInternal, "purge failed: %s: %s", env.Error.Code, env.Error.Message)
		}
		return nil, perr.Newf(perr.CodeInternal, "purge failed with status %d", resp.StatusCode)
	}
	return decodeRemoved(env.Data.Removed, opts.all)
}

// decodeRemoved reads the per kind counts of /invalidate or the single count
// of DELETE /items.
func decodeRemoved(raw json.RawMessage, all bool) (map[string]int, error) {
	if all {
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, perr.Wrap(err, perr.CodeInternal, "decode removed count")
		}
		return map[string]int{"all": n}, nil
	}
	removed := make(map[string]int)
	if err := json.Unmarshal(raw, &removed); err != nil {
		return nil, perr.Wrap(err, perr.CodeInternal, "decode removed counts")
	}
	return removed, nil
}

func printRemoved(w io.Writer, removed map[string]int) {
	kinds := make([]string, 0, len(removed))
	for k := range removed {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	total := 0
	for _, k := range kinds {
		fmt.Fprintf(w, "%-8s %d\n", k, removed[k])
		total += removed[k]
	}
	fmt.Fprintf(w, "%-8s %d\n", "total", total)
}
