package main

/*
* CLI to serve the demo services and call them
 */

import (
	"context"
	"encoding/json"
	"fmt"
	"httprpc/client"
	"httprpc/internal/demo"
	"httprpc/message"
	"httprpc/middleware"
	"httprpc/rpclog"
	"httprpc/server"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/op/go-logging"
	"github.com/urfave/cli"
)

var log = rpclog.Setup("httprpc", logging.INFO)

func Green(s string) string {
	green := color.New(color.FgHiGreen)
	green.EnableColor()
	return green.SprintFunc()(s)
}

func Red(s string) string {
	red := color.New(color.FgHiRed)
	red.EnableColor()
	return red.SprintFunc()(s)
}

func PrintFatal(msg string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, Red(fmt.Sprintf(msg, args...)))
	os.Exit(1)
}

type knownMethod struct {
	method message.Method
	void   bool
}

var demoMethods = map[string]knownMethod{
	demo.Add.Name:      {demo.Add, false},
	demo.Div.Name:      {demo.Div, false},
	demo.FMA.Name:      {demo.FMA, false},
	demo.SetValue.Name: {demo.SetValue, true},
	demo.GetValue.Name: {demo.GetValue, false},
	demo.Sleep.Name:    {demo.Sleep, true},
	demo.Fail.Name:     {demo.Fail, true},
}

func serveCommand(c *cli.Context) (err error) {
	cfg := server.DefaultConfig()
	cfg.ShutdownTimeout = c.Duration("shutdown-timeout")

	svr := server.NewServer(server.WithConfig(cfg), server.WithLogger(log))
	svr.Use(middleware.LoggingMiddleware(log))
	if rate := c.Float64("rate"); rate > 0 {
		svr.Use(middleware.RateLimitMiddleware(rate, int(rate)+1))
	}

	if err = svr.Start(c.String("addr"), demo.Services()); err != nil {
		return
	}
	fmt.Println(Green(fmt.Sprintf("serving %s and %s on %s", demo.ArithKey, demo.StoreKey, svr.Addr())))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Notice("signal received, stopping")

	return svr.Stop(cfg.ShutdownTimeout)
}

// parseArg takes JSON text as is and anything else as a string.
func parseArg(s string) any {
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	return s
}

func callCommand(c *cli.Context) (err error) {
	name := c.String("method")
	known, ok := demoMethods[name]
	if !ok {
		known = knownMethod{method: message.NewMethod(name, c.StringSlice("param")...), void: c.Bool("void")}
	}

	cfg := client.DefaultConfig(c.String("endpoint"))
	cfg.Timeout = c.Duration("timeout")
	rpc, err := client.NewClient(cfg, client.WithLogger(log))
	if err != nil {
		return
	}
	defer rpc.Close()

	var args []any
	for _, a := range c.StringSlice("arg") {
		args = append(args, parseArg(a))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if known.void {
		if err = rpc.CallVoid(ctx, known.method, args...); err != nil {
			return
		}
		fmt.Println(Green("ok"))
		return
	}

	var reply json.RawMessage
	if err = rpc.Call(ctx, known.method, &reply, args...); err != nil {
		return
	}
	fmt.Println(Green(string(reply)))
	return
}

func main() {
	app := cli.NewApp()
	app.Name = "httprpc"
	app.Usage = "serve and call methods over HTTP POST"
	app.Version = "0.1.0"
	app.Commands = []cli.Command{
		cli.Command{
			Name:   "serve",
			Usage:  "Serve the demo services under " + strings.Join([]string{demo.ArithKey, demo.StoreKey}, " and "),
			Action: serveCommand,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "addr",
					Value: "http://127.0.0.1:8080/",
					Usage: "base address the service keys are joined to",
				},
				cli.DurationFlag{
					Name:  "shutdown-timeout",
					Value: 5 * time.Second,
					Usage: "how long to wait for in-flight calls on stop",
				},
				cli.Float64Flag{
					Name:  "rate",
					Usage: "requests per second before answering 429, 0 for unlimited",
				},
			},
		},
		cli.Command{
			Name:   "call",
			Usage:  "Call one method and print its JSON result",
			Action: callCommand,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "endpoint",
					Value: "http://127.0.0.1:8080/" + demo.ArithKey + "/",
					Usage: "URL of the service",
				},
				cli.StringFlag{
					Name:  "method",
					Usage: "method name",
				},
				cli.StringSliceFlag{
					Name:  "arg",
					Usage: "argument in declaration order, JSON or plain string",
				},
				cli.StringSliceFlag{
					Name:  "param",
					Usage: "parameter names of a method the demo services do not declare",
				},
				cli.BoolFlag{
					Name:  "void",
					Usage: "the method returns nothing",
				},
				cli.DurationFlag{
					Name:  "timeout",
					Value: 30 * time.Second,
					Usage: "communication timeout",
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		PrintFatal("%v", err)
	}
}
