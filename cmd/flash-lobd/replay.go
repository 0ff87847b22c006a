package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cedrichaddad/flash-lob/internal/config"
	"github.com/cedrichaddad/flash-lob/internal/engine"
	"github.com/cedrichaddad/flash-lob/internal/logging"
	"github.com/cedrichaddad/flash-lob/pkg/lob"
)

func newReplayCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "Replay a line-oriented command file against a fresh engine and print the final snapshot.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(*configPath, args[0])
		},
	}
	return cmd
}

// parseLine understands three forms, one command per line, fields
// separated by whitespace, blank lines and lines starting with '#'
// ignored:
//
//	PLACE <order_id> <BID|ASK> <LIMIT|MARKET> <GTC|IOC|FOK> <price> <qty>
//	CANCEL <order_id>
//	MODIFY <order_id> <new_price> <new_qty>
func parseLine(line string) (lob.Command, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return lob.Command{}, false, nil
	}
	fields := strings.Fields(line)

	switch strings.ToUpper(fields[0]) {
	case "PLACE":
		if len(fields) != 7 {
			return lob.Command{}, false, fmt.Errorf("replay: PLACE wants 6 fields, got %d: %q", len(fields)-1, line)
		}
		orderID, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return lob.Command{}, false, fmt.Errorf("replay: bad order id %q: %w", fields[1], err)
		}
		side, err := parseSide(fields[2])
		if err != nil {
			return lob.Command{}, false, err
		}
		orderType, err := parseOrderType(fields[3])
		if err != nil {
			return lob.Command{}, false, err
		}
		tif, err := parseTIF(fields[4])
		if err != nil {
			return lob.Command{}, false, err
		}
		priceVal, err := strconv.ParseInt(fields[5], 10, 64)
		if err != nil {
			return lob.Command{}, false, fmt.Errorf("replay: bad price %q: %w", fields[5], err)
		}
		qtyVal, err := strconv.ParseUint(fields[6], 10, 64)
		if err != nil {
			return lob.Command{}, false, fmt.Errorf("replay: bad quantity %q: %w", fields[6], err)
		}
		price, qty := lob.Price(priceVal), lob.Quantity(qtyVal)
		return lob.Command{
			Kind: lob.PlaceCommand, OrderID: lob.OrderID(orderID),
			Side: side, OrderType: orderType, TIF: tif,
			Price: price, Quantity: qty,
		}, true, nil

	case "CANCEL":
		if len(fields) != 2 {
			return lob.Command{}, false, fmt.Errorf("replay: CANCEL wants 1 field, got %d: %q", len(fields)-1, line)
		}
		orderID, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return lob.Command{}, false, fmt.Errorf("replay: bad order id %q: %w", fields[1], err)
		}
		return lob.Command{Kind: lob.CancelCommand, OrderID: lob.OrderID(orderID)}, true, nil

	case "MODIFY":
		if len(fields) != 4 {
			return lob.Command{}, false, fmt.Errorf("replay: MODIFY wants 3 fields, got %d: %q", len(fields)-1, line)
		}
		orderID, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return lob.Command{}, false, fmt.Errorf("replay: bad order id %q: %w", fields[1], err)
		}
		newPrice, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return lob.Command{}, false, fmt.Errorf("replay: bad new price %q: %w", fields[2], err)
		}
		newQty, err := strconv.ParseUint(fields[3], 10, 64)
		if err != nil {
			return lob.Command{}, false, fmt.Errorf("replay: bad new quantity %q: %w", fields[3], err)
		}
		return lob.Command{
			Kind: lob.ModifyCommand, OrderID: lob.OrderID(orderID),
			NewPrice: lob.Price(newPrice), NewQuantity: lob.Quantity(newQty),
		}, true, nil
	}

	return lob.Command{}, false, fmt.Errorf("replay: unknown command %q in line %q", fields[0], line)
}

func parseSide(s string) (lob.Side, error) {
	switch strings.ToUpper(s) {
	case "BID":
		return lob.Bid, nil
	case "ASK":
		return lob.Ask, nil
	default:
		return 0, fmt.Errorf("replay: unknown side %q", s)
	}
}

func parseOrderType(s string) (lob.OrderType, error) {
	switch strings.ToUpper(s) {
	case "LIMIT":
		return lob.Limit, nil
	case "MARKET":
		return lob.Market, nil
	default:
		return 0, fmt.Errorf("replay: unknown order type %q", s)
	}
}

func parseTIF(s string) (lob.TimeInForce, error) {
	switch strings.ToUpper(s) {
	case "GTC":
		return lob.GTC, nil
	case "IOC":
		return lob.IOC, nil
	case "FOK":
		return lob.FOK, nil
	default:
		return 0, fmt.Errorf("replay: unknown time in force %q", s)
	}
}

func runReplay(configPath, file string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Environment)
	if err != nil {
		return err
	}
	defer log.Sync()

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("replay: opening %s: %w", file, err)
	}
	defer f.Close()

	// The snapshot is published after every command, so the one read
	// once Run returns reflects the last command in the file.
	eng := engine.New(engine.Config{
		Symbol:                 cfg.Engine.Symbol,
		ArenaCapacity:          cfg.Engine.ArenaCapacity,
		CommandRingCapacity:    cfg.Engine.CommandRingCapacity,
		EventRingCapacity:      cfg.Engine.EventRingCapacity,
		SnapshotDepth:          cfg.Engine.SnapshotDepth,
		SnapshotEveryNCommands: 1,
	}, log, nil)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- eng.Run(ctx) }()

	// Events are drained continuously so the engine never has to spin
	// against a full event ring while this loop is busy submitting.
	go func() {
		for {
			if _, err := eng.Events.TryPop(); err != nil {
				if eng.State() == engine.Halted {
					return
				}
				time.Sleep(time.Microsecond)
			}
		}
	}()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		cmd, ok, err := parseLine(scanner.Text())
		if err != nil {
			cancel()
			return err
		}
		if !ok {
			continue
		}
		for eng.Commands.TryPush(cmd) != nil {
			runtime.Gosched()
		}
	}
	if err := scanner.Err(); err != nil {
		cancel()
		return fmt.Errorf("replay: reading %s: %w", file, err)
	}

	for eng.Commands.Len() > 0 && eng.State() != engine.Halted {
		time.Sleep(time.Microsecond)
	}

	cancel()
	<-runDone

	snap := eng.Snapshot()
	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("replay: marshalling final snapshot: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
