package api

import (
	"log"
	"os"
	"time"

	"github.com/MJE43/fairpace/internal/session"
)

// SecurityLogger writes audit lines that never contain raw seeds or tokens.
type SecurityLogger struct {
	logger *log.Logger
}

// NewSecurityLogger creates a security logger on stdout.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{logger: log.New(os.Stdout, "[SECURITY] ", log.LstdFlags|log.LUTC)}
}

// LogSessionCreated records a new session by its seed hash.
func (sl *SecurityLogger) LogSessionCreated(requestID, sessionID, runMode, difficulty, seed string) {
	sl.logger.Printf(
		"session_created request_id=%s session_id=%s run_mode=%s difficulty=%s seed_hash=%s engine_version=%s timestamp=%s",
		requestID, sessionID, runMode, difficulty, hashSeed(seed), EngineVersion, now(),
	)
}

// LogSeedHashOperation records a seed hash request (only the hash, never the raw seed).
func (sl *SecurityLogger) LogSeedHashOperation(requestID, resultHash string) {
	sl.logger.Printf(
		"seed_hash_operation request_id=%s result_hash=%s engine_version=%s timestamp=%s",
		requestID, resultHash, EngineVersion, now(),
	)
}

// LogSecurityEvent records failed auth and rejected input.
func (sl *SecurityLogger) LogSecurityEvent(requestID, eventType, description, remoteAddr string) {
	sl.logger.Printf(
		"security_event request_id=%s type=%s description=%q remote_addr=%s engine_version=%s timestamp=%s",
		requestID, eventType, description, remoteAddr, EngineVersion, now(),
	)
}

// LogSystemStartup records the listen address and whether auth is on.
func (sl *SecurityLogger) LogSystemStartup(addr string, tokenRequired bool) {
	sl.logger.Printf(
		"system_startup addr=%s token_required=%t engine_version=%s git_commit=%s build_time=%s timestamp=%s",
		addr, tokenRequired, EngineVersion, GitCommit, BuildTime, now(),
	)
}

// LogSystemShutdown records shutdown.
func (sl *SecurityLogger) LogSystemShutdown(reason string, uptime time.Duration) {
	sl.logger.Printf(
		"system_shutdown reason=%s uptime=%v engine_version=%s timestamp=%s",
		reason, uptime, EngineVersion, now(),
	)
}

// hashSeed returns a loggable stand-in for a seed.
func hashSeed(seed string) string {
	if seed == "" {
		return "empty"
	}
	return session.HashSeed(seed)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
