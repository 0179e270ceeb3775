// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Command noded runs the node scheduler loop and the environmental
// monitors (C6/C8). Its default mode watches assigned jobs and fires
// them; its "execute" subcommand runs exactly one firing's container
// lifecycle DAG (C7) in its own OS process, then exits — the node
// scheduler loop never runs a firing in-process (§5).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"

	"github.com/leoscope/leoscope/app"
	"github.com/leoscope/leoscope/app/executor"
	"github.com/leoscope/leoscope/bootstrap"
)

// main dispatches to the scheduler loop or the one-shot "execute" mode
// based on the first command-line argument.
//
// Returns:
//   - None.
func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	if len(os.Args) > 1 && os.Args[1] == "execute" {
		if err := runExecute(os.Args[2:]); err != nil {
			log.Fatal("executor run failed: ", err)
		}
		return
	}

	config, err := app.LoadConfig()
	if err != nil {
		log.Fatal("Loading config error: ", err)
	}

	ctx := context.Background()
	na, err := bootstrap.NewNodeApp(ctx, config)
	if err != nil {
		log.Fatal("New NodeApp error: ", err)
	}

	na.Start(ctx)

	s := waitForSignal()
	log.Println("Signal received, node agent closed.", s)
}

// runExecute constructs a standalone Executor and runs exactly one
// firing's lifecycle DAG (§4.4). It is invoked by nodeagent's Spawner as
// a freshly exec'd OS process, isolating one firing's container
// supervision from the scheduler loop and from every other firing.
//
// Parameters:
//   - args: "-job <id> -run <id> -start <unix seconds>".
//
// Returns:
//   - error: returned when config loading, dependency construction, the
//     job lookup, or the lifecycle DAG itself fails.
func runExecute(args []string) error {
	fs := flag.NewFlagSet("execute", flag.ExitOnError)
	jobID := fs.String("job", "", "job id to execute")
	runID := fs.String("run", "", "run id assigned to this firing")
	startTS := fs.String("start", "", "firing start time, unix seconds")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *jobID == "" || *runID == "" {
		return fmt.Errorf("execute: -job and -run are required")
	}

	start, err := strconv.ParseInt(*startTS, 10, 64)
	if err != nil {
		return fmt.Errorf("execute: invalid -start: %w", err)
	}

	config, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("execute: loading config: %w", err)
	}

	ctx := context.Background()
	na, err := bootstrap.NewNodeApp(ctx, config)
	if err != nil {
		return fmt.Errorf("execute: node app: %w", err)
	}

	job, err := na.Coord.GetJob(ctx, *jobID)
	if err != nil {
		return fmt.Errorf("execute: fetch job %s: %w", *jobID, err)
	}

	firing := executor.Firing{
		RunID:   *runID,
		Job:     job,
		OwnerID: job.OwnerID,
		StartTS: start,
	}

	return na.Executor.Run(ctx, firing)
}

// waitForSignal blocks until an interrupt or kill signal is received.
//
// Returns:
//   - os.Signal: the signal that terminates the process.
func waitForSignal() os.Signal {
	signalChan := make(chan os.Signal, 1)
	defer close(signalChan)
	signal.Notify(signalChan, os.Kill, os.Interrupt)
	s := <-signalChan
	signal.Stop(signalChan)
	return s
}
