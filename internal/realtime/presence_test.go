package realtime

import "testing"

func TestRegisterDisplacesPreviousClient(t *testing.T) {
	log := mustTestLogger(t)
	p := NewPresence(log)

	first := NewClient(RoleVisitor, nil, log)
	second := NewClient(RoleVisitor, nil, log)

	if displaced := p.Register("tok-1", first); displaced != nil {
		t.Fatalf("first register displaced someone")
	}
	displaced := p.Register("tok-1", second)
	if displaced != first {
		t.Fatalf("expected first client to be displaced")
	}

	current, ok := p.Lookup("tok-1")
	if !ok || current != second {
		t.Fatalf("lookup should return the newest client")
	}
}

func TestUnregisterIgnoresStaleClient(t *testing.T) {
	log := mustTestLogger(t)
	p := NewPresence(log)

	old := NewClient(RoleVisitor, nil, log)
	current := NewClient(RoleVisitor, nil, log)
	p.Register("tok-1", old)
	p.Register("tok-1", current)

	// A late disconnect from the displaced client must not evict the live one.
	p.Unregister("tok-1", old)
	if got, ok := p.Lookup("tok-1"); !ok || got != current {
		t.Fatalf("stale unregister removed the live client")
	}

	p.Unregister("tok-1", current)
	if _, ok := p.Lookup("tok-1"); ok {
		t.Fatalf("live client should be gone after its own unregister")
	}
}

func TestTypingState(t *testing.T) {
	log := mustTestLogger(t)
	p := NewPresence(log)
	c := NewClient(RoleVisitor, nil, log)
	p.Register("tok-1", c)

	if p.IsTyping("tok-1") {
		t.Fatalf("typing should default to false")
	}
	p.SetTyping("tok-1", true)
	if !p.IsTyping("tok-1") {
		t.Fatalf("typing not recorded")
	}
	p.SetTyping("tok-1", false)
	if p.IsTyping("tok-1") {
		t.Fatalf("typing not cleared")
	}

	// Unknown tokens are silently ignored.
	p.SetTyping("ghost", true)
	if p.IsTyping("ghost") {
		t.Fatalf("unknown token should never be typing")
	}
}

func TestOnlineCount(t *testing.T) {
	log := mustTestLogger(t)
	p := NewPresence(log)

	p.Register("a", NewClient(RoleVisitor, nil, log))
	p.Register("b", NewClient(RoleVisitor, nil, log))
	p.Register("a", NewClient(RoleVisitor, nil, log))

	if n := p.Online(); n != 2 {
		t.Fatalf("online = %d, want 2", n)
	}
}
