package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bbengfort/votally"
	"github.com/bbengfort/votally/pb"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"google.golang.org/grpc/status"
)

func main() {
	// Load the .env file if it exists
	godotenv.Load()

	app := cli.NewApp()
	app.Name = "votally"
	app.Version = votally.PackageVersion
	app.Usage = "run and vote in single-election polls"
	app.Before = setupLogging
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Aliases: []string{"L"},
			Usage:   "minimum level of log messages to display",
			Value:   "info",
			EnvVars: []string{"VOTALLY_LOG_LEVEL"},
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "serve",
			Usage:     "run a poll server for a single election",
			ArgsUsage: "choice [choice ...]",
			Action:    serve,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "name",
					Aliases: []string{"n"},
					Usage:   "name of the poll, the hostname by default",
				},
				&cli.StringFlag{
					Name:    "addr",
					Aliases: []string{"a"},
					Usage:   "address to listen for voters on",
					Value:   fmt.Sprintf(":%d", votally.DefaultPort),
				},
				&cli.StringFlag{
					Name:    "voting-system",
					Aliases: []string{"m", "method"},
					Usage:   "voting method used to count ballots",
					Value:   votally.PluralityMethod,
				},
				&cli.StringFlag{
					Name:    "control",
					Aliases: []string{"c"},
					Usage:   "address to serve the operator control service on",
				},
				&cli.DurationFlag{
					Name:    "timeout",
					Aliases: []string{"t"},
					Usage:   "how long a voter may take to submit a ballot",
				},
				&cli.DurationFlag{
					Name:    "uptime",
					Aliases: []string{"u"},
					Usage:   "close balloting automatically after this duration",
				},
				&cli.StringFlag{
					Name:  "metrics",
					Usage: "append poll metrics as a JSON line to this file",
				},
				&cli.BoolFlag{
					Name:  "no-prompt",
					Usage: "do not prompt the operator to begin and end balloting",
				},
			},
		},
		{
			Name:      "vote",
			Usage:     "connect to a poll server and cast a ballot",
			ArgsUsage: "[choice ...]",
			Action:    vote,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "server",
					Aliases: []string{"s", "addr"},
					Usage:   "address of the poll server",
					Value:   fmt.Sprintf("localhost:%d", votally.DefaultPort),
				},
			},
		},
		{
			Name:   "begin",
			Usage:  "open balloting on a poll server",
			Action: phase(func(r *votally.Remote) (string, error) { return r.Begin() }),
			Flags:  controlFlags(),
		},
		{
			Name:   "end",
			Usage:  "close balloting on a poll server",
			Action: phase(func(r *votally.Remote) (string, error) { return r.End() }),
			Flags:  controlFlags(),
		},
		{
			Name:   "cancel",
			Usage:  "cancel a poll before balloting begins",
			Action: phase(func(r *votally.Remote) (string, error) { return r.Cancel() }),
			Flags:  controlFlags(),
		},
		{
			Name:   "result",
			Usage:  "wait for and print the result of a poll",
			Action: result,
			Flags:  controlFlags(),
		},
		{
			Name:   "status",
			Usage:  "print the phase and counts of a poll",
			Action: pollStatus,
			Flags:  controlFlags(),
		},
		{
			Name:   "methods",
			Usage:  "list the available voting methods",
			Action: methods,
		},
		{
			Name:   "bench",
			Usage:  "blast a poll server with concurrent voters",
			Action: bench,
			Flags: append(controlFlags(),
				&cli.StringFlag{
					Name:    "server",
					Aliases: []string{"s", "addr"},
					Usage:   "address of the poll server",
					Value:   fmt.Sprintf("localhost:%d", votally.DefaultPort),
				},
				&cli.UintFlag{
					Name:    "voters",
					Aliases: []string{"N"},
					Usage:   "number of concurrent voters",
					Value:   100,
				},
				&cli.BoolFlag{
					Name:  "json",
					Usage: "print the results as JSON rather than CSV",
				},
			),
		},
	}

	app.Run(os.Args)
}

func controlFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "control",
			Aliases: []string{"c"},
			Usage:   "address of the poll control service",
			Value:   "localhost:50051",
			EnvVars: []string{"VOTALLY_CONTROL"},
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Usage:   "how long to wait for the poll to respond",
			Value:   votally.DefaultControlTimeout,
		},
	}
}

func setupLogging(c *cli.Context) error {
	level, err := zerolog.ParseLevel(c.String("log-level"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	return nil
}

//===========================================================================
// Server Commands
//===========================================================================

func serve(c *cli.Context) (err error) {
	if c.NArg() < 2 {
		return cli.Exit("There is not enough choice.", 1)
	}

	options := &votally.Config{
		Name:     c.String("name"),
		Addr:     c.String("addr"),
		Method:   c.String("voting-system"),
		Choices:  c.Args().Slice(),
		Control:  c.String("control"),
		LogLevel: c.String("log-level"),
		Metrics:  c.String("metrics"),
	}

	if timeout := c.Duration("timeout"); timeout > 0 {
		options.Timeout = timeout.String()
	}

	if uptime := c.Duration("uptime"); uptime > 0 {
		options.Uptime = uptime.String()
	}

	// The method and the choices are checked before any socket is opened.
	var poll *votally.Poll
	if poll, err = votally.New(options); err != nil {
		return cli.Exit(err, 1)
	}

	fmt.Println(poll.Info())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- poll.Listen(ctx)
	}()

	if !c.Bool("no-prompt") {
		go operate(ctx, poll)
	}

	// Print the result as soon as it is published. When the operator drives
	// the poll from the prompt the server stops once the result is out,
	// otherwise it keeps answering late voters until interrupted.
	select {
	case <-poll.Resulted():
		if result, err := poll.ComputeResult(ctx); err == nil {
			fmt.Println(result.Summary())
		}
	case <-poll.Cancelled():
		fmt.Println("poll cancelled")
	case err = <-errc:
		if err != nil {
			return cli.Exit(err, 1)
		}
		return nil
	}

	if !c.Bool("no-prompt") {
		sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err = poll.Shutdown(sctx); err != nil {
			return cli.Exit(err, 1)
		}
	}

	if err = <-errc; err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}

// operate prompts the operator on stdin to begin and then end balloting.
func operate(ctx context.Context, poll *votally.Poll) {
	stdin := bufio.NewReader(os.Stdin)
	for _, action := range []string{"begin", "end"} {
		fmt.Printf("Press enter to %s balloting\n", action)
		if _, err := stdin.ReadString('\n'); err != nil {
			return
		}

		if ctx.Err() != nil {
			return
		}

		var err error
		switch action {
		case "begin":
			err = poll.BeginBalloting()
		case "end":
			err = poll.EndBalloting()
		}

		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			if errors.Is(err, votally.ErrAlreadyClosed) || errors.Is(err, votally.ErrPollCancelled) {
				return
			}
		}
	}
}

//===========================================================================
// Voter Commands
//===========================================================================

func vote(c *cli.Context) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var client *votally.Client
	if client, err = votally.Dial(ctx, c.String("server")); err != nil {
		return cli.Exit(err, 1)
	}
	defer client.Close()

	info, _ := client.Info()

	var ballot votally.Ballot
	if c.NArg() > 0 {
		fmt.Println(info)
		if ballot, err = votally.NewBallot(info.Form, c.Args().Slice()...); err != nil {
			return cli.Exit(err, 1)
		}
	} else {
		if ballot, err = votally.Prompt(os.Stdin, os.Stdout, info); err != nil {
			return cli.Exit(err, 1)
		}
	}

	fmt.Println("waiting for balloting to open")
	if err = client.Vote(ballot); err != nil {
		return cli.Exit(err, 1)
	}
	fmt.Println("Vote cast!")

	var winner string
	if winner, err = client.Result(); err != nil {
		return cli.Exit(err, 1)
	}

	if winner == "" {
		winner = votally.NoWinner
	}
	fmt.Printf("The winner is %s\n", winner)
	return nil
}

//===========================================================================
// Operator Commands
//===========================================================================

func phase(call func(*votally.Remote) (string, error)) cli.ActionFunc {
	return func(c *cli.Context) error {
		remote := votally.NewRemote(c.String("control"), c.Duration("timeout"))
		defer remote.Close()

		phase, err := call(remote)
		if err != nil {
			return cli.Exit(status.Convert(err).Message(), 1)
		}

		fmt.Printf("poll is now %s\n", phase)
		return nil
	}
}

func result(c *cli.Context) error {
	remote := votally.NewRemote(c.String("control"), c.Duration("timeout"))
	defer remote.Close()

	result, err := remote.Result()
	if err != nil {
		return cli.Exit(status.Convert(err).Message(), 1)
	}

	printResult(result)
	return nil
}

func pollStatus(c *cli.Context) error {
	remote := votally.NewRemote(c.String("control"), c.Duration("timeout"))
	defer remote.Close()

	info, err := remote.Status()
	if err != nil {
		return cli.Exit(status.Convert(err).Message(), 1)
	}

	fmt.Printf("%s is %s (%s election, %s ballots)\n", info.Name, info.Phase, info.Method, info.Form)
	fmt.Printf("%s voters, %s ballots counted, %s rejected, %s late\n",
		humanize.Comma(int64(info.Voters)), humanize.Comma(int64(info.Total)),
		humanize.Comma(int64(info.Rejected)), humanize.Comma(int64(info.Late)),
	)

	for _, count := range info.Counts {
		fmt.Printf("  %-20s %s\n", count.Choice, humanize.Comma(int64(count.Votes)))
	}

	if !info.Updated.IsZero() {
		fmt.Printf("last ballot counted %s\n", humanize.Time(info.Updated))
	}

	if !info.Closes.IsZero() {
		fmt.Printf("balloting closes automatically %s\n", humanize.Time(info.Closes))
	}

	if info.Result != nil {
		printResult(info.Result)
	}
	return nil
}

func printResult(result *pb.Result) {
	winner := result.Winner
	if winner == "" {
		winner = votally.NoWinner
	}

	fmt.Printf("%s election with %s ballots: %s\n", result.Method, humanize.Comma(int64(result.Total)), winner)
	for _, count := range result.Counts {
		fmt.Printf("  %-20s %s\n", count.Choice, humanize.Comma(int64(count.Votes)))
	}
}

func methods(c *cli.Context) error {
	for _, name := range votally.Methods() {
		form, _ := votally.Lookup(name)
		fmt.Printf("%-12s %s ballots\n", name, form)
	}
	return nil
}

func bench(c *cli.Context) error {
	results, err := votally.NewBenchmark(c.String("server"), c.String("control"), c.Uint("voters"), c.Duration("timeout"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	if c.Bool("json") {
		data, err := results.JSON(2)
		if err != nil {
			return cli.Exit(err, 1)
		}
		fmt.Println(string(data))
		return nil
	}

	row, err := results.CSV(true)
	if err != nil {
		return cli.Exit(err, 1)
	}
	fmt.Println(row)
	return nil
}
