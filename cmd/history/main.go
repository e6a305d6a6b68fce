package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"sdm-scanner/pkg/scanhistory"
)

func main() {
	var dbPath string
	var sessionID string
	var listSessions bool
	var latest bool
	var stats bool
	var limit int
	flag.StringVar(&dbPath, "db", "scanner.db", "history database path")
	flag.StringVar(&sessionID, "session", "", "print measurements for one session id")
	flag.BoolVar(&listSessions, "sessions", false, "list scan sessions")
	flag.BoolVar(&latest, "latest", false, "print the latest reading per channel")
	flag.BoolVar(&stats, "stats", false, "print aggregated stats as JSON")
	flag.IntVar(&limit, "limit", 20, "maximum sessions to list")
	flag.Parse()

	client, err := scanhistory.Open(dbPath)
	if err != nil {
		log.Fatalf("open %s: %v", dbPath, err)
	}
	defer client.Close()

	ctx := context.Background()
	switch {
	case sessionID != "":
		rows, err := client.SessionMeasurements(ctx, sessionID)
		if err != nil {
			log.Fatalf("session %s: %v", sessionID, err)
		}
		for _, r := range rows {
			status := r.Status
			if r.Overload {
				status = "OVERLOAD"
			}
			fmt.Printf("%s  ch%-2d %-10s %-8s %12g %-4s %s\n",
				r.Timestamp.Format("2006-01-02 15:04:05"),
				r.Channel, r.MeasurementType, r.RangeValue, r.Value, r.Unit, status)
		}
	case listSessions:
		sessions, err := client.Sessions(ctx, limit)
		if err != nil {
			log.Fatalf("list sessions: %v", err)
		}
		for _, s := range sessions {
			fmt.Printf("%s  %-10s %-40s %s\n",
				s.StartedAt.Format("2006-01-02 15:04:05"), s.Mode, s.Resource, s.ID)
		}
	case latest:
		rows, err := client.LatestPerChannel(ctx)
		if err != nil {
			log.Fatalf("latest: %v", err)
		}
		for _, r := range rows {
			fmt.Printf("ch%-2d %-10s %-8s %12g %-4s %s\n",
				r.Channel, r.MeasurementType, r.RangeValue, r.Value, r.Unit, r.Status)
		}
	case stats:
		b, err := client.StatsJSON(ctx, limit)
		if err != nil {
			log.Fatalf("stats: %v", err)
		}
		os.Stdout.Write(b)
		fmt.Println()
	default:
		flag.Usage()
		os.Exit(2)
	}
}
