package eventbus

import "context"

// ReadinessSource is what a Transport's Subscribe returns: a channel that
// becomes readable exactly when the subscribed topic has a pending message,
// matching the core's requirement of only level- or edge-triggered
// readiness (spec.md §6 IPC transport contract) — the core never blocks on
// IPC itself.
type ReadinessSource <-chan struct{}

// Transport is the narrow interface the Global/IPC event kind delegates to.
// It is an external collaborator (spec.md §1 Out of scope: "iceoryx2-based
// IPC transport"); this module defines only the contract plus an in-memory
// test double, never a real IPC implementation.
type Transport interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string) (ReadinessSource, error)
	Poll(ctx context.Context) error
}

// Global is an in-process-or-IPC event delegating to a Transport. The core
// never blocks on IPC directly; readiness integrates through the
// Transport's ReadinessSource, which Global turns into the same
// Listener.Wait contract every other event kind exposes.
type Global struct {
	topic     string
	transport Transport
	local     *Local
}

// NewGlobal binds a named topic to a Transport.
func NewGlobal(topic string, transport Transport) *Global {
	return &Global{topic: topic, transport: transport, local: NewLocal(topic)}
}

// Listen subscribes to the topic and returns a Listener whose Wait
// resolves on transport readiness, translated into the same edge-triggered
// pending-bit contract Local uses.
func (g *Global) Listen(ctx context.Context) (*Listener, error) {
	lst := g.local.Listen()
	ready, err := g.transport.Subscribe(ctx, g.topic)
	if err != nil {
		return nil, err
	}
	go func() {
		for {
			select {
			case _, ok := <-ready:
				if !ok {
					return
				}
				g.local.Notify(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	return lst, nil
}

// Publish sends payload on the bound topic.
func (g *Global) Publish(ctx context.Context, payload []byte) error {
	return g.transport.Publish(ctx, g.topic, payload)
}

// InMemoryTransport is a same-process Transport test double used by the IPC
// test scenario (spec.md S5) where a real iceoryx2 transport is
// unavailable — it satisfies the same narrow contract a real
// publish/subscribe/poll transport would.
type InMemoryTransport struct {
	subs map[string][]chan struct{}
}

// NewInMemoryTransport creates an empty transport.
func NewInMemoryTransport() *InMemoryTransport {
	return &InMemoryTransport{subs: make(map[string][]chan struct{})}
}

func (m *InMemoryTransport) Publish(_ context.Context, topic string, _ []byte) error {
	for _, ch := range m.subs[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (m *InMemoryTransport) Subscribe(_ context.Context, topic string) (ReadinessSource, error) {
	ch := make(chan struct{}, 1)
	m.subs[topic] = append(m.subs[topic], ch)
	return ch, nil
}

func (m *InMemoryTransport) Poll(_ context.Context) error { return nil }
