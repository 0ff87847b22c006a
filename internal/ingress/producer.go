package ingress

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cedrichaddad/flash-lob/internal/ring"
	"github.com/cedrichaddad/flash-lob/pkg/lob"
)

// Config tunes the synthetic producer's pacing, price range, and
// circuit-breaker sensitivity.
type Config struct {
	OrdersPerSecond  float64
	MaxPriceTicks    lob.Price
	CircuitThreshold uint32
}

// Producer generates a synthetic, randomized but plausible stream of
// Place/Cancel/Modify commands and pushes them onto an engine's command
// ring, rate-limited by a token bucket and circuit-broken against
// sustained ring backpressure — the "producer policy" spec §4.5
// deliberately leaves unspecified, made concrete here.
type Producer struct {
	cfg     Config
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	ids     *IDMapper
	log     *zap.Logger

	rng *rand.Rand

	// liveIDs tracks order ids this producer believes are resting, so
	// its synthetic Cancel/Modify commands target real orders instead
	// of generating pure UnknownOrder noise.
	liveIDs []lob.OrderID
}

// NewProducer builds a Producer; the command ring it pushes onto is
// passed to Run.
func NewProducer(cfg Config, log *zap.Logger, seed int64) *Producer {
	if log == nil {
		log = zap.NewNop()
	}
	breakerSettings := gobreaker.Settings{
		Name:        "ingress-command-push",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     2 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.CircuitThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("ingress circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &Producer{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.OrdersPerSecond), 1),
		breaker: gobreaker.NewCircuitBreaker(breakerSettings),
		ids:     NewIDMapper(10*time.Minute, time.Minute),
		log:     log,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Run pushes commands onto dst until ctx is done, then returns ctx's
// error. It never blocks on a full ring: TryPush failures count as
// breaker failures, and while the breaker is open each generated
// command is dropped without touching the ring until the breaker's
// timeout elapses. A command whose push fails is dropped as well.
func (p *Producer) Run(ctx context.Context, dst *ring.SPSC[lob.Command]) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.limiter.Wait(ctx); err != nil {
			// Wait also fails early when the next token would arrive
			// after ctx's deadline; run out the context either way.
			<-ctx.Done()
			return ctx.Err()
		}

		cmd := p.nextCommand()
		_, err := p.breaker.Execute(func() (interface{}, error) {
			return nil, dst.TryPush(cmd)
		})
		if err != nil {
			p.log.Debug("ingress push rejected", zap.Error(err))
			continue
		}
		p.record(cmd)
	}
}

func (p *Producer) nextCommand() lob.Command {
	if len(p.liveIDs) > 2 && p.rng.Float64() < 0.3 {
		id := p.liveIDs[p.rng.Intn(len(p.liveIDs))]
		if p.rng.Float64() < 0.5 {
			return lob.Command{Kind: lob.CancelCommand, OrderID: id}
		}
		return lob.Command{
			Kind:        lob.ModifyCommand,
			OrderID:     id,
			NewPrice:    p.randomPrice(),
			NewQuantity: lob.Quantity(1 + p.rng.Intn(100)),
		}
	}

	ext := NewExternalID()
	id := p.ids.Map(ext)
	side := lob.Bid
	if p.rng.Intn(2) == 1 {
		side = lob.Ask
	}
	tif := []lob.TimeInForce{lob.GTC, lob.IOC, lob.FOK}[p.rng.Intn(3)]

	return lob.Command{
		Kind:      lob.PlaceCommand,
		OrderID:   id,
		Side:      side,
		OrderType: lob.Limit,
		TIF:       tif,
		Price:     p.randomPrice(),
		Quantity:  lob.Quantity(1 + p.rng.Intn(100)),
		ClientTag: uint64(id),
	}
}

func (p *Producer) record(cmd lob.Command) {
	switch cmd.Kind {
	case lob.PlaceCommand:
		if len(p.liveIDs) < 4096 {
			p.liveIDs = append(p.liveIDs, cmd.OrderID)
		}
	case lob.CancelCommand:
		for i, id := range p.liveIDs {
			if id == cmd.OrderID {
				p.liveIDs[i] = p.liveIDs[len(p.liveIDs)-1]
				p.liveIDs = p.liveIDs[:len(p.liveIDs)-1]
				break
			}
		}
	}
}

func (p *Producer) randomPrice() lob.Price {
	if p.cfg.MaxPriceTicks <= 0 {
		return 1
	}
	return lob.Price(1 + p.rng.Int63n(int64(p.cfg.MaxPriceTicks)))
}

// String renders a Producer's configuration for startup logging.
func (c Config) String() string {
	return fmt.Sprintf("orders_per_second=%.1f max_price_ticks=%d circuit_threshold=%d",
		c.OrdersPerSecond, c.MaxPriceTicks, c.CircuitThreshold)
}
