// Command projection-request sends one calculation to the projection worker
// over AMQP and prints the reply as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"collegesave/internal/amqp"
	"collegesave/internal/cli"
	"collegesave/internal/core"
	applog "collegesave/internal/log"
)

func main() {
	var in core.Input
	flag.Float64Var(&in.CurrentAge, "current-age", 5, "child's current age")
	flag.Float64Var(&in.CollegeStartAge, "college-start-age", 18, "age when starting college")
	flag.Float64Var(&in.AnnualCost, "annual-cost", 35000, "annual college cost today")
	flag.Float64Var(&in.CollegeInflationRate, "inflation", 4, "college cost inflation, percent per year")
	flag.Float64Var(&in.YearsOfCollege, "years", 4, "years of college")
	flag.Float64Var(&in.AlreadySaved, "saved", 60000, "amount already saved")
	flag.Float64Var(&in.RateOfReturn, "return", 7, "expected rate of return, percent per year")
	flag.Float64Var(&in.PercentToCover, "cover", 75, "percent of the cost to cover")
	series := flag.Bool("series", false, "include the monthly series")
	timeout := flag.Duration("timeout", 10*time.Second, "how long to wait for the reply")
	flag.Parse()

	cli.LoadEnvFile()
	boot := cli.SetupLogger("warn", applog.ComponentAMQP)
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentAMQP)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	reply, err := client.RequestProjection(ctx, in, *series)
	if err != nil {
		cli.Fatal(logger, "Projection request failed", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reply); err != nil {
		cli.Fatal(logger, "Failed to write reply", err)
	}
	if reply.Error != nil {
		os.Exit(2)
	}
}
