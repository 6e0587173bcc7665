package alert

const (
	DefaultPriceDropRuleID = "default-price-drop"
	DefaultGasHighRuleID   = "default-gas-high"
)

// DefaultRules returns the rules seeded into a fresh store.
func DefaultRules() []AlertRule {
	return []AlertRule{
		{
			ID:   DefaultPriceDropRuleID,
			Type: TypePrice,
			Name: "Large Price Drop",
			Conditions: Conditions{
				"changePercent": -10.0,
				"timeWindow":    "24h",
			},
			Active: true,
		},
		{
			ID:   DefaultGasHighRuleID,
			Type: TypeGas,
			Name: "High Gas Prices",
			Conditions: Conditions{
				"threshold": 50.0,
				"network":   "ethereum",
			},
			Active: true,
		},
	}
}

// SeedDefaults appends the default rules that are not present yet and
// returns how many were added.
func (s *Store) SeedDefaults() int {
	s.mu.Lock()

	now := s.now().UnixMilli()
	added := 0
	for _, r := range DefaultRules() {
		if s.indexOfRule(r.ID) >= 0 {
			continue
		}
		r.CreatedAt = now
		s.rules = append(s.rules, r)
		added++
	}

	listeners := s.listeners
	unread := s.unread
	s.mu.Unlock()

	if added > 0 {
		s.publish(listeners, Change{Kind: ChangeRules, UnreadCount: unread})
	}
	return added
}

func (s *Store) AddRule(in NewRule) AlertRule {
	s.mu.Lock()

	id := s.newID()
	for s.indexOfRule(id) >= 0 {
		id = s.newID()
	}

	rule := AlertRule{
		ID:         id,
		Type:       in.Type,
		Name:       in.Name,
		Conditions: in.Conditions.clone(),
		Active:     in.Active,
		CreatedAt:  s.now().UnixMilli(),
	}
	s.rules = append(s.rules, rule)

	listeners := s.listeners
	unread := s.unread
	s.mu.Unlock()

	s.publish(listeners, Change{Kind: ChangeRules, RuleID: rule.ID, UnreadCount: unread})

	rule.Conditions = rule.Conditions.clone()
	return rule
}

// UpdateRule applies a partial update. Conditions are merged so keys
// absent from the update keep their value. The second return is false
// when no rule has that id, in which case nothing changes.
func (s *Store) UpdateRule(id string, upd RuleUpdate) (AlertRule, bool) {
	s.mu.Lock()

	i := s.indexOfRule(id)
	if i < 0 {
		s.mu.Unlock()
		return AlertRule{}, false
	}

	rule := s.rules[i]
	if upd.Name != nil {
		rule.Name = *upd.Name
	}
	if upd.Active != nil {
		rule.Active = *upd.Active
	}
	if upd.Conditions != nil {
		rule.Conditions = rule.Conditions.Merge(upd.Conditions)
	}
	s.rules[i] = rule

	listeners := s.listeners
	unread := s.unread
	s.mu.Unlock()

	s.publish(listeners, Change{Kind: ChangeRules, RuleID: id, UnreadCount: unread})

	rule.Conditions = rule.Conditions.clone()
	return rule, true
}

func (s *Store) DeleteRule(id string) bool {
	s.mu.Lock()

	i := s.indexOfRule(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}

	rules := make([]AlertRule, 0, len(s.rules)-1)
	rules = append(rules, s.rules[:i]...)
	s.rules = append(rules, s.rules[i+1:]...)

	listeners := s.listeners
	unread := s.unread
	s.mu.Unlock()

	s.publish(listeners, Change{Kind: ChangeRules, RuleID: id, UnreadCount: unread})
	return true
}

func (s *Store) Rules() []AlertRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]AlertRule, len(s.rules))
	for i, r := range s.rules {
		r.Conditions = r.Conditions.clone()
		out[i] = r
	}
	return out
}

func (s *Store) Rule(id string) (AlertRule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOfRule(id)
	if i < 0 {
		return AlertRule{}, false
	}
	rule := s.rules[i]
	rule.Conditions = rule.Conditions.clone()
	return rule, true
}

// ActiveRules returns the active rules of the given type. Inactive rules
// are never handed to an evaluator.
func (s *Store) ActiveRules(t Type) []AlertRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []AlertRule
	for _, r := range s.rules {
		if r.Type != t || !r.Active {
			continue
		}
		r.Conditions = r.Conditions.clone()
		out = append(out, r)
	}
	return out
}

func (s *Store) indexOfRule(id string) int {
	for i := range s.rules {
		if s.rules[i].ID == id {
			return i
		}
	}
	return -1
}
