// Package workflow runs the interactive session: collect the wallet, chain,
// and target, launch the browser bridge, arbitrate signing, and relay capture
// results until the browser closes.
package workflow

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/openclaw/walletbridge/internal/approver"
	"github.com/openclaw/walletbridge/internal/assist"
	"github.com/openclaw/walletbridge/internal/browser"
	"github.com/openclaw/walletbridge/internal/capture"
	"github.com/openclaw/walletbridge/internal/config"
	"github.com/openclaw/walletbridge/internal/logging"
	"github.com/openclaw/walletbridge/internal/probe"
	"github.com/openclaw/walletbridge/internal/provider"
	"github.com/openclaw/walletbridge/internal/rpc"
	"github.com/openclaw/walletbridge/internal/session"
	"github.com/openclaw/walletbridge/internal/wallet"
)

// Session is one interactive run of the bridge.
type Session struct {
	cfg   *config.Config
	log   *logging.Logger
	store *wallet.Store
	in    *bufio.Reader
	out   io.Writer

	mu      sync.Mutex
	pending []*approver.TxRequest
}

// New builds a session reading from stdin and writing to stdout.
func New(cfg *config.Config, log *logging.Logger) *Session {
	return &Session{
		cfg:   cfg,
		log:   log,
		store: wallet.NewStore(cfg.Dir),
		in:    bufio.NewReader(os.Stdin),
		out:   os.Stdout,
	}
}

// Run drives the whole session and blocks until the browser is closed.
func (s *Session) Run(ctx context.Context) error {
	if !probe.SetupComplete(s.cfg) {
		fmt.Fprintln(s.out, "setup has not been run; `walletbridge setup` checks your environment first")
	}

	slog, err := session.Open(s.cfg.Dir)
	if err != nil {
		return err
	}
	defer slog.Close()

	w, err := s.pickWallet()
	if err != nil {
		return err
	}
	ch, err := s.pickChain()
	if err != nil {
		return err
	}
	targetURL, err := s.pickURL()
	if err != nil {
		return err
	}
	slog.Printf("session: wallet=%s chain=%d url=%s", w.Address, ch.ID, targetURL)

	captureID, err := s.obtainCaptureID(ctx)
	if err != nil {
		return err
	}
	slog.Printf("capture id: %s", captureID)

	// Wire the three bridge subsystems.
	bus := approver.NewBus()
	dispatcher, err := rpc.New(w, ch, bus, rpc.NewClient(), s.log)
	if err != nil {
		return err
	}
	bridge := capture.New(s.cfg.Capture, captureID, s.log)
	rt := browser.New(s.cfg.Browser, s.log)

	rt.RegisterFunction("__rpcProxy", rpcHandler(dispatcher))
	rt.RegisterFunction("__submitCapture", submitHandler(bridge))
	rt.OnPopup(bridge.ObservePopup)

	s.watchCaptureEvents(bridge.Events(), slog)

	requests := make(chan *approver.TxRequest, 16)
	bus.Attach(func(req *approver.TxRequest) {
		s.mu.Lock()
		s.pending = append(s.pending, req)
		s.mu.Unlock()
		requests <- req
	})
	defer bus.Detach()
	defer s.rejectPending()

	script := provider.Script(provider.Params{
		Address:        w.Address,
		ChainHexID:     ch.HexID,
		NumericChainID: ch.NumericID(),
	})
	if err := rt.Start(ctx, script, targetURL); err != nil {
		slog.Error("browser start", err)
		return err
	}
	defer rt.Close()

	fmt.Fprintln(s.out, "\nbrowser is up. commands: inject | quit")
	s.commandLoop(ctx, rt, bridge, requests, slog)

	slog.Printf("browser closed")
	return nil
}

// obtainCaptureID asks the assistant, falling back to manual entry.
func (s *Session) obtainCaptureID(ctx context.Context) (string, error) {
	assistant := assist.New(s.cfg.Assist.Command, s.log)
	assistant.Debug = s.cfg.Debug
	assistant.DumpDir = s.cfg.LogsDir()

	if err := assistant.Check(); err == nil {
		fmt.Fprintln(s.out, "\nrequesting capture id from assistant...")
		if id, err := assistant.CaptureID(ctx); err == nil {
			fmt.Fprintf(s.out, "capture id: %s\n", id)
			return id, nil
		}
		s.log.Warn("assistant failed, asking for manual capture id")
	}
	return s.readLine("capture id> ")
}

// commandLoop multiplexes user commands and signing requests on one stdin.
func (s *Session) commandLoop(ctx context.Context, rt *browser.Runtime, bridge *capture.Bridge, requests <-chan *approver.TxRequest, slog *session.Log) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := s.readLine("")
			if err != nil {
				return
			}
			select {
			case lines <- line:
			case <-rt.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-rt.Done():
			return
		case <-ctx.Done():
			return
		case req := <-requests:
			s.arbitrate(req, lines, slog)
		case line, ok := <-lines:
			if !ok {
				<-rt.Done()
				return
			}
			switch line {
			case "inject":
				result := bridge.InjectToolbar(ctx, rt)
				if result.Success {
					fmt.Fprintln(s.out, "capture toolbar injected")
					slog.Printf("toolbar injected")
				} else {
					fmt.Fprintf(s.out, "injection failed: %s\n", result.Error)
					slog.Printf("toolbar injection failed: %s", result.Error)
				}
			case "quit", "exit":
				return
			case "":
			default:
				fmt.Fprintln(s.out, "commands: inject | quit")
			}
		}
	}
}

// arbitrate renders one signing request and applies the user's verdict.
func (s *Session) arbitrate(req *approver.TxRequest, lines <-chan string, slog *session.Log) {
	fmt.Fprintf(s.out, "\n-- signing request #%d (%s) --\n", req.SequenceID, req.Method)
	for _, f := range req.Display {
		fmt.Fprintf(s.out, "  %s: %s\n", f.Key, f.Value)
	}
	fmt.Fprint(s.out, "approve? [y/N] ")

	answer, ok := <-lines
	if !ok || (answer != "y" && answer != "yes") {
		slog.Printf("request #%d rejected by user", req.SequenceID)
		req.Reject(fmt.Errorf("user rejected request"))
		s.forget(req)
		return
	}

	value, err := req.Signer()
	if err != nil {
		slog.Error(fmt.Sprintf("request #%d signing", req.SequenceID), err)
		req.Reject(err)
	} else {
		slog.Printf("request #%d approved", req.SequenceID)
		req.Resolve(value)
	}
	s.forget(req)
}

func (s *Session) forget(req *approver.TxRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.pending {
		if p == req {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// rejectPending clears requests still outstanding at teardown.
func (s *Session) rejectPending() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, req := range pending {
		req.Reject(fmt.Errorf("session closed"))
	}
}

// watchCaptureEvents relays capture results to the user and the session log.
func (s *Session) watchCaptureEvents(events *capture.Emitter, slog *session.Log) {
	events.On(capture.EventSubmitted, func(string) {
		slog.Printf("capture submitted")
	})
	events.On(capture.EventClaimURL, func(url string) {
		slog.Printf("claim url: %s", url)
		fmt.Fprintf(s.out, "\nclaim url: %s\n", url)
		if qr, err := qrcode.New(url, qrcode.Medium); err == nil {
			fmt.Fprintln(s.out, qr.ToSmallString(false))
		}
	})
	events.On(capture.EventNextID, func(id string) {
		slog.Printf("next capture id: %s", id)
		fmt.Fprintf(s.out, "next capture id: %s\n", id)
	})
	events.On(capture.EventFigmaURL, func(url string) {
		slog.Printf("figma popup: %s", url)
		fmt.Fprintf(s.out, "figma popup: %s\n", url)
	})
}

// rpcHandler adapts the dispatcher to the browser binding surface.
func rpcHandler(d *rpc.Dispatcher) browser.Handler {
	return func(ctx context.Context, args []json.RawMessage) (any, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("invalid input: missing method")
		}
		var method string
		if err := json.Unmarshal(args[0], &method); err != nil {
			return nil, fmt.Errorf("invalid input: method is not a string")
		}
		var params []any
		if len(args) > 1 {
			if err := json.Unmarshal(args[1], &params); err != nil {
				return nil, fmt.Errorf("invalid input: params is not an array")
			}
		}
		return d.Dispatch(ctx, method, params)
	}
}

// submitHandler adapts the capture bridge to the browser binding surface.
func submitHandler(b *capture.Bridge) browser.Handler {
	return func(ctx context.Context, args []json.RawMessage) (any, error) {
		if len(args) < 2 {
			return nil, fmt.Errorf("invalid input: __submitCapture takes url and body")
		}
		var url, body string
		if err := json.Unmarshal(args[0], &url); err != nil {
			return nil, fmt.Errorf("invalid input: url is not a string")
		}
		if err := json.Unmarshal(args[1], &body); err != nil {
			return nil, fmt.Errorf("invalid input: body is not a string")
		}
		return b.Submit(ctx, url, body)
	}
}

// RunSetup executes the environment probe and writes the marker on success.
func RunSetup(cfg *config.Config, log *logging.Logger, out io.Writer) error {
	assistant := assist.New(cfg.Assist.Command, log)
	checks, err := probe.New(cfg, assistant, log).Run()
	for _, c := range checks {
		status := "ok"
		if !c.OK {
			status = "FAILED"
		}
		fmt.Fprintf(out, "  %-12s %-7s %s\n", c.Name, status, c.Detail)
	}
	if err != nil {
		return err
	}
	if err := probe.MarkSetupComplete(cfg); err != nil {
		return err
	}
	fmt.Fprintln(out, "setup complete")
	return nil
}
