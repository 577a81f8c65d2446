package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/mingle/chat-app/internal/ban"
	"github.com/mingle/chat-app/internal/chat"
	"github.com/mingle/chat-app/internal/friend"
	"github.com/mingle/chat-app/internal/matching"
	"github.com/mingle/chat-app/internal/metrics"
	"github.com/mingle/chat-app/internal/moderation"
	"github.com/mingle/chat-app/internal/protocol"
	"github.com/mingle/chat-app/internal/ratelimit"
	"github.com/mingle/chat-app/internal/registry"
	"github.com/mingle/chat-app/internal/report"
	"github.com/mingle/chat-app/internal/user"
	"github.com/mingle/chat-app/internal/ws"
)

func main() {
	config := ws.DefaultServerConfig()

	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		config.ListenAddr = addr
	}
	if v := os.Getenv("WORKER_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.WorkerPoolSize = n
		}
	}
	if v := os.Getenv("MAX_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.MaxConnections = n
		}
	}
	if v := os.Getenv("READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.ReadTimeout = d
		}
	}
	if v := os.Getenv("WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.WriteTimeout = d
		}
	}

	matchTimeout := matching.DefaultSearchTimeout
	if v := os.Getenv("MATCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			matchTimeout = d
		}
	}

	metricsAddr := ":9090"
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		metricsAddr = v
	}

	// --- Redis (optional: rate limiting and bans degrade to no-ops) ---
	var rdb *redis.Client
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: redisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect to Redis at %s: %v", redisAddr, err)
		}
		cancel()
	} else {
		log.Printf("REDIS_ADDR not set, rate limiting and bans disabled")
	}

	// --- PostgreSQL (optional: abuse reports degrade to log-only) ---
	var db *sql.DB
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		var err error
		db, err = sql.Open("postgres", dbURL)
		if err != nil {
			log.Fatalf("failed to open PostgreSQL: %v", err)
		}
		if err := db.Ping(); err != nil {
			log.Fatalf("failed to connect to PostgreSQL: %v", err)
		}
		if err := report.Migrate(db); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	} else {
		log.Printf("DATABASE_URL not set, abuse report persistence disabled")
	}

	users := registry.New()
	sessions := chat.NewRegistry(users)
	matcher := matching.NewService(sessions, users, matchTimeout)
	friends := friend.NewRelay(sessions, users)
	filter := moderation.NewFilter()
	limiter := ratelimit.NewLimiter(rdb)
	bans := ban.NewStore(rdb)
	reports := report.NewStore(db)

	log.Printf("Mingle chat server starting")
	log.Printf("  listen_addr:     %s", config.ListenAddr)
	log.Printf("  metrics_addr:    %s", metricsAddr)
	log.Printf("  worker_pool:     %d", config.WorkerPoolSize)
	log.Printf("  max_connections: %d", config.MaxConnections)
	log.Printf("  read_timeout:    %s", config.ReadTimeout)
	log.Printf("  write_timeout:   %s", config.WriteTimeout)
	log.Printf("  match_timeout:   %s", matchTimeout)

	dispatcher := ws.NewMessageDispatcher(nil)

	// -----------------------------------------------------------------------
	// find_match — enter the matching queue (or match immediately)
	// -----------------------------------------------------------------------
	dispatcher.Register(protocol.TypeFindMatch, func(conn *ws.Connection, msg interface{}) {
		findMsg, ok := msg.(protocol.FindMatchMsg)
		if !ok {
			return
		}
		ctx := context.Background()

		if !limiter.Allow(ctx, conn.User.ID, ratelimit.RuleSearch) {
			retry := limiter.RetryAfter(ctx, conn.User.ID, ratelimit.RuleSearch)
			conn.WriteMessage(protocol.MustServerMessage(protocol.TypeRateLimited, protocol.RateLimitedMsg{
				RetryAfter: retry,
			}))
			return
		}

		filters := findMsg.Filters()
		filters.Interests = filter.CheckInterests(filters.Interests)
		matcher.FindMatch(conn.User, filters)
	})

	// -----------------------------------------------------------------------
	// cancel_match — leave the matching queue
	// -----------------------------------------------------------------------
	dispatcher.Register(protocol.TypeCancelMatch, func(conn *ws.Connection, msg interface{}) {
		matcher.Cancel(conn.User.ID)
	})

	// -----------------------------------------------------------------------
	// send_message — relay a chat message to the session partner
	// -----------------------------------------------------------------------
	dispatcher.Register(protocol.TypeSendMessage, func(conn *ws.Connection, msg interface{}) {
		sendMsg, ok := msg.(protocol.SendMessageMsg)
		if !ok {
			return
		}
		ctx := context.Background()

		if err := chat.ValidateMessage(sendMsg.Content); err != nil {
			conn.WriteMessage(protocol.MustServerMessage(protocol.TypeError, protocol.ErrorMsg{
				Code: "invalid_message", Message: err.Error(),
			}))
			return
		}

		if !limiter.Allow(ctx, conn.User.ID, ratelimit.RuleMessage) {
			retry := limiter.RetryAfter(ctx, conn.User.ID, ratelimit.RuleMessage)
			conn.WriteMessage(protocol.MustServerMessage(protocol.TypeRateLimited, protocol.RateLimitedMsg{
				RetryAfter: retry,
			}))
			return
		}

		if result := filter.Check(sendMsg.Content); result.Blocked {
			metrics.MessagesTotal.WithLabelValues("blocked").Inc()
			log.Printf("[moderation] blocked message from %s: %s (%s)", conn.User.ID, result.Reason, result.Term)
			conn.WriteMessage(protocol.MustServerMessage(protocol.TypeError, protocol.ErrorMsg{
				Code: "message_blocked", Message: "message violates content policy",
			}))
			return
		}

		sessions.Relay(conn.User.ID, sendMsg.ChatID, sendMsg.Content)
	})

	// -----------------------------------------------------------------------
	// leave_chat — end the active chat, notifying the partner
	// -----------------------------------------------------------------------
	dispatcher.Register(protocol.TypeLeaveChat, func(conn *ws.Connection, msg interface{}) {
		leaveMsg, ok := msg.(protocol.LeaveChatMsg)
		if !ok {
			return
		}
		sessions.Leave(conn.User.ID, leaveMsg.ChatID)
	})

	// -----------------------------------------------------------------------
	// friend request lifecycle — relayed through the active session
	// -----------------------------------------------------------------------
	dispatcher.Register(protocol.TypeSendFriendRequest, func(conn *ws.Connection, msg interface{}) {
		reqMsg, ok := msg.(protocol.SendFriendRequestMsg)
		if !ok {
			return
		}
		friends.SendRequest(conn.User, reqMsg.ChatID)
	})

	dispatcher.Register(protocol.TypeAcceptFriendRequest, func(conn *ws.Connection, msg interface{}) {
		acceptMsg, ok := msg.(protocol.AcceptFriendRequestMsg)
		if !ok {
			return
		}
		friends.Accept(conn.User, acceptMsg.ChatID)
	})

	dispatcher.Register(protocol.TypeRejectFriendRequest, func(conn *ws.Connection, msg interface{}) {
		rejectMsg, ok := msg.(protocol.RejectFriendRequestMsg)
		if !ok {
			return
		}
		friends.Reject(conn.User, rejectMsg.ChatID)
	})

	dispatcher.Register(protocol.TypeRemoveFriend, func(conn *ws.Connection, msg interface{}) {
		removeMsg, ok := msg.(protocol.RemoveFriendMsg)
		if !ok {
			return
		}
		friends.Remove(conn.User, removeMsg.FriendID)
	})

	// -----------------------------------------------------------------------
	// report — persist an abuse report with a conversation snapshot
	// -----------------------------------------------------------------------
	dispatcher.Register(protocol.TypeReport, func(conn *ws.Connection, msg interface{}) {
		reportMsg, ok := msg.(protocol.ReportMsg)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if !report.ValidReason(reportMsg.Reason) {
			conn.WriteMessage(protocol.MustServerMessage(protocol.TypeError, protocol.ErrorMsg{
				Code: "invalid_reason", Message: "unknown report reason",
			}))
			return
		}

		session := sessions.Get(reportMsg.ChatID)
		if session == nil {
			return
		}
		reported, ok := session.Partner(conn.User.ID)
		if !ok {
			return
		}

		entries := make([]report.MessageEntry, 0, chat.SnapshotSize)
		for _, bm := range sessions.Snapshot(reportMsg.ChatID) {
			from := "user_b"
			if bm.From == session.UserA.ID {
				from = "user_a"
			}
			entries = append(entries, report.MessageEntry{From: from, Text: bm.Text, Ts: bm.Ts})
		}

		if err := reports.Create(ctx, &report.Report{
			ReporterID: conn.User.ID,
			ReportedID: reported.ID,
			ChatID:     reportMsg.ChatID,
			Reason:     reportMsg.Reason,
			Messages:   entries,
		}); err != nil {
			log.Printf("[report] persist failed: %v", err)
		}
		metrics.ReportsTotal.Inc()
		log.Printf("[report] %s reported %s in chat=%s reason=%s", conn.User.ID, reported.ID, reportMsg.ChatID, reportMsg.Reason)

		banned, duration, err := bans.ReportAndCheck(ctx, reported.ID)
		if err != nil {
			log.Printf("[report] ban check failed: %v", err)
			return
		}
		if banned {
			log.Printf("[report] auto-banned %s for %s", reported.ID, duration)
			users.Send(reported.ID, protocol.MustServerMessage(protocol.TypeBanned, protocol.BannedMsg{
				Duration: int(duration.Seconds()),
				Reason:   "multiple_reports",
			}))
		}
	})

	server := ws.NewServer(config, users, dispatcher.Dispatch)
	dispatcher.SetServer(server)

	// Refuse banned and connection-flooding users before registration.
	server.SetConnectGate(func(ctx context.Context, u user.User) ([]byte, bool) {
		isBanned, remaining, reason, err := bans.IsBanned(ctx, u.ID)
		if err != nil {
			log.Printf("[gate] ban check for %s failed: %v (failing open)", u.ID, err)
		} else if isBanned {
			return protocol.MustServerMessage(protocol.TypeBanned, protocol.BannedMsg{
				Duration: remaining,
				Reason:   reason,
			}), false
		}

		if !limiter.Allow(ctx, u.ID, ratelimit.RuleConnect) {
			retry := limiter.RetryAfter(ctx, u.ID, ratelimit.RuleConnect)
			return protocol.MustServerMessage(protocol.TypeRateLimited, protocol.RateLimitedMsg{
				RetryAfter: retry,
			}), false
		}

		return nil, true
	})

	// A dropped connection behaves exactly like cancel_match plus leave_chat.
	server.SetOnDisconnect(func(u user.User) {
		matcher.Disconnect(u.ID)
		sessions.Disconnect(u.ID)
	})

	// Prometheus metrics endpoint on its own listener.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, initiating graceful shutdown...", sig)
		if err := server.Shutdown(); err != nil {
			log.Printf("shutdown error: %v", err)
		}
		if rdb != nil {
			if err := rdb.Close(); err != nil {
				log.Printf("redis close error: %v", err)
			}
		}
		if db != nil {
			if err := db.Close(); err != nil {
				log.Printf("postgres close error: %v", err)
			}
		}
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
