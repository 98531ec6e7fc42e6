package babbage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/babbage/go/types"
	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// PaymentMessageBox is the relay mailbox fee recipients read tokens from
	PaymentMessageBox = "payment_inbox"

	// DefaultNotifyTimeout bounds a single notification delivery
	DefaultNotifyTimeout = 30 * time.Second
)

// TokenInstructions lets a recipient re-derive the key of its fee output
type TokenInstructions struct {
	DerivationPrefix string `json:"derivationPrefix"`
	DerivationSuffix string `json:"derivationSuffix"`
}

// PaymentToken tells a fee recipient which output of a finalized transaction
// pays it. It carries no spending authority.
type PaymentToken struct {
	CustomInstructions TokenInstructions `json:"customInstructions"`
	Transaction        types.ByteArray   `json:"transaction"`
	Amount             uint64            `json:"amount"`
	OutputIndex        uint32            `json:"outputIndex"`
}

// noopRelay drops messages. It is used when no relay was configured.
type noopRelay struct{}

func (noopRelay) SendMessage(_ context.Context, msg Message) error {
	log.Warnf("No message relay configured, dropping payment notification for %s", msg.Recipient)
	return nil
}

// notifier sends payment tokens in the background. Delivery is best effort:
// failures are logged and reported to hooks, never to the action path.
type notifier struct {
	relay   MessageRelay
	gm      *fn.GoroutineManager
	timeout time.Duration
	clock   clock.Clock
	hooks   func() hookSet
}

func newNotifier(relay MessageRelay, timeout time.Duration, clk clock.Clock, hooks func() hookSet) *notifier {
	if relay == nil {
		log.Warnf("No message relay configured, fee recipients will not " +
			"receive payment tokens")
		relay = noopRelay{}
	}
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	return &notifier{
		relay:   relay,
		gm:      fn.NewGoroutineManager(),
		timeout: timeout,
		clock:   clk,
		hooks:   hooks,
	}
}

// send queues a token for delivery and returns immediately
func (n *notifier) send(recipient string, token PaymentToken) {
	body, err := json.Marshal(token)
	if err != nil {
		log.Errorf("Unable to encode payment token for %s: %v", recipient, err)
		return
	}

	msg := Message{
		MessageID:  uuid.NewString(),
		Recipient:  recipient,
		MessageBox: PaymentMessageBox,
		Body:       body,
	}

	started := n.gm.Go(context.Background(), func(ctx context.Context) {
		// Stopping the manager cancels ctx. Deliveries already underway
		// are let finish within the timeout instead.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()

		start := n.clock.Now()
		err := n.relay.SendMessage(ctx, msg)
		notifyCtx := NotifyContext{
			Recipient: recipient,
			Token:     token,
			Duration:  n.clock.Now().Sub(start),
		}

		hooks := n.hooks()
		if err != nil {
			log.Warnf("Payment notification to %s failed: %v", recipient, err)
			for _, hook := range hooks.onNotifyFailure {
				if hookErr := hook(NotifyFailureContext{NotifyContext: notifyCtx, Error: err}); hookErr != nil {
					log.Debugf("Notify failure hook error: %v", hookErr)
				}
			}
			return
		}

		log.Debugf("Sent payment notification %s to %s for output %d",
			msg.MessageID, recipient, token.OutputIndex)
		for _, hook := range hooks.afterNotify {
			if hookErr := hook(notifyCtx); hookErr != nil {
				log.Debugf("After notify hook error: %v", hookErr)
			}
		}
	})
	if !started {
		log.Warnf("Notifier stopped, payment notification to %s not sent", recipient)
	}
}

// stop waits for in-flight notifications and rejects new ones
func (n *notifier) stop() {
	n.gm.Stop()
}
