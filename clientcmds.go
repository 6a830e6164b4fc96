package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"vox/client"
	"vox/config"
	"vox/deliver"
	"vox/model"
	"vox/protocol"
	"vox/shutdown"
)

func newServiceClient(cfg config.Config) (*client.Client, error) {
	path, err := config.ExpandSocketPath(cfg.Service.SocketPath)
	if err != nil {
		return nil, err
	}
	return client.New(path), nil
}

func runTranscribe(cfg config.Config, mode deliver.Mode, format string, maxDuration, silence, rate int) int {
	if format != "text" && format != "json" {
		fmt.Fprintf(os.Stderr, "Error: unknown output format %q (use text or json)\n", format)
		return 2
	}
	c, err := newServiceClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	resp, err := c.Request(protocol.NewTranscribe(maxDuration, silence, rate))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	switch r := resp.(type) {
	case protocol.Result:
		if err := deliver.Deliver(r.Text, mode); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: deliver: %v\n", err)
		}
		if format == "json" {
			json.NewEncoder(os.Stdout).Encode(r)
		} else if r.Text != "" {
			fmt.Println(r.Text)
		}
		return 0
	case protocol.Error:
		fmt.Fprintf(os.Stderr, "Error: %s\n", r.Error)
		return 1
	}
	fmt.Fprintf(os.Stderr, "Error: unexpected response %T\n", resp)
	return 1
}

func runStatus(cfg config.Config, format string) int {
	if format != "text" && format != "json" {
		fmt.Fprintf(os.Stderr, "Error: unknown output format %q (use text or json)\n", format)
		return 2
	}
	c, err := newServiceClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	resp, err := c.Request(protocol.NewStatus())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	status, ok := resp.(protocol.Status)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unexpected response %T\n", resp)
		return 1
	}

	if format == "json" {
		json.NewEncoder(os.Stdout).Encode(status)
		return 0
	}
	fmt.Println("service: running")
	if status.ModelLoaded {
		fmt.Printf("model: loaded (%s)\n", status.ModelPath)
	} else {
		fmt.Println("model: not loaded")
	}
	fmt.Printf("audio device: %s\n", status.AudioDevice)
	fmt.Printf("uptime: %s\n", time.Duration(status.UptimeSeconds)*time.Second)
	fmt.Printf("last activity: %s ago\n", time.Duration(status.LastActivitySecondsAgo)*time.Second)
	return 0
}

func runStop(cfg config.Config) int {
	c, err := newServiceClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	resp, err := c.Request(protocol.NewStop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if e, ok := resp.(protocol.Error); ok {
		fmt.Fprintf(os.Stderr, "Error: %s\n", e.Error)
		return 1
	}
	fmt.Println("Recording stopped.")
	return 0
}

func runModels() int {
	mgr, err := openStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Remote size lookups go over the network; cap them so a dead
	// connection does not hang the listing.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sizes := mgr.Sizes(ctx)

	fmt.Printf("%-16s %-10s %10s  %s\n", "NAME", "ENGINE", "SIZE", "STATE")
	for _, info := range mgr.List() {
		size := "?"
		if s, ok := sizes[info.Name]; ok {
			size = fmt.Sprintf("%d MB", s/1_000_000)
		}
		state := "-"
		if info.Downloaded {
			state = "downloaded"
		}
		fmt.Printf("%-16s %-10s %10s  %s\n", info.Name, info.Engine, size, state)
	}

	st, err := mgr.StorageInfo()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println()
	fmt.Printf("storage: %d downloaded, %d MB used, %d MB free\n",
		st.DownloadedCount, st.TotalBytes/1_000_000, st.FreeBytes/1_000_000)
	fmt.Printf("  %s\n", st.Dir)
	return 0
}

func runDownload(name string) int {
	mgr, err := openStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	info, err := mgr.Resolve(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if info.Downloaded {
		fmt.Printf("%s is already downloaded.\n", name)
		return 0
	}

	// Ctrl+C cancels the transfer; the store never keeps partial files.
	ctx, cancel := shutdown.Context(context.Background())
	defer cancel()

	fmt.Printf("Downloading %s...\n", name)
	start := time.Now()
	err = mgr.Download(ctx, name, func(done, total int64) {
		if total > 0 {
			fmt.Printf("\r  %3.0f%% (%d / %d MB)", float64(done)/float64(total)*100, done/1_000_000, total/1_000_000)
		} else {
			fmt.Printf("\r  %d MB", done/1_000_000)
		}
	})
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("Downloaded %s in %s\n", name, time.Since(start).Round(time.Second))
	return 0
}

func runRemove(name string) int {
	mgr, err := openStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := mgr.Remove(name); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("Removed %s.\n", name)
	return 0
}

func openStore() (*model.Manager, error) {
	dir, err := config.ModelsDir()
	if err != nil {
		return nil, err
	}
	return model.NewManager(dir)
}
