package services

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/models"
	"github.com/Krypt-Cyber/ckryptbit.xyz/pkg/config"
)

// Simulated backend sensors feeding the threat intel stream.
var threatSources = []string{
	"Backend:Firewall Zeta",
	"Backend:AuthGuard Prime",
	"Backend:AI Anomaly Detection",
	"Backend:Network Intrusion Sensor",
	"Backend:DarkNet Monitor",
	"Backend:Endpoint Security Core",
}

var threatUsernames = []string{
	"OperatorX", "ZeroCool", "AcidBurn", "PhantomPhreak",
	"CypherGhost", "RootAdminSim", "SystemInternal",
}

var threatIPs = []string{
	"192.168.1.101", "10.0.5.23", "203.0.113.45",
	"172.16.33.99", "8.8.8.8", "1.1.1.1", "127.0.0.1",
}

var threatActions = []string{
	"blocked", "flagged", "quarantined", "escalated", "logged", "mitigated",
}

var threatSeverities = []models.ThreatSeverity{
	models.SeverityInfo, models.SeverityLow, models.SeverityMedium,
	models.SeverityHigh, models.SeverityCritical,
}

// ThreatFeedService simulates the backend threat intel stream while an
// operator session is active. Events are kept newest first and capped; the
// feed is empty whenever no session is established.
type ThreatFeedService struct {
	mu    sync.Mutex
	sched Scheduler
	rng   *rand.Rand

	maxEvents int
	interval  time.Duration
	jitter    time.Duration

	events  []models.ThreatIntelEvent
	task    Task
	running bool
}

// NewThreatFeedService creates the feed simulator. It does not start
// emitting until Start is called.
func NewThreatFeedService(sched Scheduler, cfg *config.ConsoleConfig) *ThreatFeedService {
	return &ThreatFeedService{
		sched:     sched,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		maxEvents: cfg.ThreatFeedMax,
		interval:  cfg.ThreatFeedInterval,
		jitter:    cfg.ThreatFeedJitter,
	}
}

// Start begins emitting events, with one emitted immediately so the feed
// is never blank right after login. Starting an already running feed is a
// no-op.
func (t *ThreatFeedService) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.prependLocked(t.generateLocked())
	t.task = t.sched.Schedule(t.nextDelayLocked(), t.tick)
	log.Info().Msg("Threat intel feed online")
}

// Stop halts emission and drops all accumulated events.
func (t *ThreatFeedService) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.running = false
	if t.task != nil {
		t.task.Stop()
		t.task = nil
	}
	t.events = nil
	log.Info().Msg("Threat intel feed offline")
}

// Clear empties the event list without stopping emission.
func (t *ThreatFeedService) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}

// Events returns a snapshot of the feed, newest first.
func (t *ThreatFeedService) Events() []models.ThreatIntelEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.ThreatIntelEvent, len(t.events))
	copy(out, t.events)
	return out
}

// Running reports whether the feed is emitting.
func (t *ThreatFeedService) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *ThreatFeedService) tick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.prependLocked(t.generateLocked())
	t.task = t.sched.Schedule(t.nextDelayLocked(), t.tick)
}

func (t *ThreatFeedService) prependLocked(event models.ThreatIntelEvent) {
	t.events = append([]models.ThreatIntelEvent{event}, t.events...)
	if len(t.events) > t.maxEvents {
		t.events = t.events[:t.maxEvents]
	}
}

func (t *ThreatFeedService) nextDelayLocked() time.Duration {
	if t.jitter <= 0 {
		return t.interval
	}
	return t.interval + time.Duration(t.rng.Int63n(int64(t.jitter)))
}

// generateLocked fabricates one event with a severity-appropriate message
// and detail payload.
func (t *ThreatFeedService) generateLocked() models.ThreatIntelEvent {
	severity := threatSeverities[t.rng.Intn(len(threatSeverities))]
	source := threatSources[t.rng.Intn(len(threatSources))]

	var message string
	details := make(map[string]interface{})

	switch severity {
	case models.SeverityInfo:
		message = fmt.Sprintf("System check nominal for %s. Operator %s activity normal.",
			source, t.pick(threatUsernames))
		details["last_scan"] = time.Now().UTC().Add(-time.Duration(t.rng.Intn(900)) * time.Second).Format(time.RFC3339)
		details["component_health"] = "OK"

	case models.SeverityLow:
		ip := t.pick(threatIPs)
		message = fmt.Sprintf("Low-priority alert from %s: Unusual outbound traffic pattern to %s detected and logged.",
			source, ip)
		details["target_ip"] = ip
		details["port"] = 80 + t.rng.Intn(1000)
		details["protocol"] = []string{"TCP", "UDP"}[t.rng.Intn(2)]

	case models.SeverityMedium:
		ip := t.pick(threatIPs)
		message = fmt.Sprintf("Multiple failed API auth attempts for resource '/admin/config' from IP %s. Action: %s.",
			ip, t.pick(threatActions))
		details["username_attempted"] = t.pick(threatUsernames)
		details["source_ip"] = ip
		details["attempts"] = 3 + t.rng.Intn(5)
		details["resource_targeted"] = "/api/admin/config"

	case models.SeverityHigh:
		message = fmt.Sprintf("Potentially malicious API payload detected in request to '/api/orders' by user '%s'. Request blocked by %s.",
			t.pick(threatUsernames), source)
		details["payload_signature"] = "SQLI_PATTERN_" + strings.ToUpper(uuid.NewString()[:8])
		details["user_id"] = "user_" + uuid.NewString()[:7]

	case models.SeverityCritical:
		ip := t.pick(threatIPs)
		message = fmt.Sprintf("CRITICAL ALERT: Unauthorized modification attempt on '/data/users.json' by unauthenticated IP %s! %s has blocked the IP and escalated to admin.",
			ip, source)
		details["attacker_ip"] = ip
		details["accessed_resource"] = "/data/users.json"
		details["action_taken"] = "IP_BLOCKED_AND_ALERTED"
	}

	return models.ThreatIntelEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Severity:  severity,
		Source:    source,
		Message:   message,
		Details:   details,
	}
}

func (t *ThreatFeedService) pick(arr []string) string {
	return arr[t.rng.Intn(len(arr))]
}
