package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/MmmDelicious/lovememory-sub002/config"
	"github.com/MmmDelicious/lovememory-sub002/internal/auth"
	"github.com/MmmDelicious/lovememory-sub002/internal/engine"
	"github.com/MmmDelicious/lovememory-sub002/internal/game/chessgame"
	"github.com/MmmDelicious/lovememory-sub002/internal/game/codenames"
	"github.com/MmmDelicious/lovememory-sub002/internal/game/manager"
	"github.com/MmmDelicious/lovememory-sub002/internal/game/memory"
	"github.com/MmmDelicious/lovememory-sub002/internal/game/poker"
	"github.com/MmmDelicious/lovememory-sub002/internal/game/quiz"
	"github.com/MmmDelicious/lovememory-sub002/internal/game/tictactoe"
	"github.com/MmmDelicious/lovememory-sub002/internal/game/wordle"
	"github.com/MmmDelicious/lovememory-sub002/internal/lobby"
	"github.com/MmmDelicious/lovememory-sub002/internal/storage"
	"github.com/MmmDelicious/lovememory-sub002/internal/utils"
	"github.com/MmmDelicious/lovememory-sub002/internal/websocket"
)

func main() {
	config.Load()
	utils.Init()

	rdb, err := storage.InitRedis(
		config.C.Redis.Addr,
		config.C.Redis.Password,
		config.C.Redis.DB,
	)
	if err != nil {
		utils.Error.Fatalf("Redis init failed: %v", err)
	}
	if err := storage.InitPostgres(config.C.Database.DSN); err != nil {
		utils.Error.Fatalf("Postgres init failed: %v", err)
	}
	results := storage.NewResultStore(storage.DB)

	hub := websocket.NewHub()
	go hub.Run()

	registry := engine.NewRegistry()
	tictactoe.Register(registry)
	memory.Register(registry)
	chessgame.Register(registry)
	quiz.Register(registry)
	wordle.Register(registry)
	codenames.Register(registry)
	poker.Register(registry)

	mgr := manager.New(hub, registry)
	hub.OnIncoming = mgr.HandlePlayerMessage

	repo := lobby.NewRedisRepo(rdb)
	known := func(gameType string) bool {
		for _, t := range registry.Types() {
			if t == gameType {
				return true
			}
		}
		return false
	}
	svc := lobby.NewService(repo, 300, hub, known)

	// live matches by room id, so a finished room can be released
	var matches sync.Map

	svc.OnMatch = func(m *lobby.Match) {
		players := make([]engine.Player, len(m.Players))
		for i, id := range m.Players {
			players[i] = engine.Player{ID: id, Name: id}
		}
		if _, err := mgr.CreateRoom(m.ID, m.GameType, players, roomSettings(m.GameType)); err != nil {
			utils.Error.Printf("CreateRoom %s failed: %v", m.ID, err)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = svc.Release(ctx, m)
			return
		}
		matches.Store(m.ID, m)
	}

	mgr.OnRoomFinished = func(roomID string, state map[string]any) {
		if v, ok := matches.LoadAndDelete(roomID); ok {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = svc.Release(ctx, v.(*lobby.Match))
			cancel()
		}
		gameType, _ := state["gameType"].(string)
		winner, _ := state["winner"].(string)
		if err := results.SaveResult(roomID, gameType, winner, state); err != nil {
			utils.Error.Printf("SaveResult %s failed: %v", roomID, err)
		}
	}

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/games", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"games": registry.Types()})
	})
	r.GET("/results", func(c *gin.Context) {
		recent, err := results.RecentResults(50)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": recent})
	})

	authGroup := r.Group("/auth")
	{
		ah := auth.NewHandler()
		authGroup.POST("/login", ah.Login)
	}

	secured := r.Group("/", auth.Middleware())
	{
		secured.GET("/ws", websocket.ServeWS(hub))

		lh := lobby.NewHandler(svc)
		secured.POST("/lobby/join", lh.Join)
		secured.POST("/lobby/cancel", lh.Cancel)
	}

	utils.Info.Printf("Server running on %s", config.C.Server.Port)
	if err := r.Run(config.C.Server.Port); err != nil {
		utils.Error.Fatalf("server stopped: %v", err)
	}
}

// roomSettings maps the configured table defaults onto a variant.
func roomSettings(gameType string) engine.Settings {
	s := engine.Settings{
		TurnTimeout: time.Duration(config.C.Game.TurnTimeoutSec) * time.Second,
	}
	if gameType == poker.GameType {
		s.SmallBlind = config.C.Game.SmallBlind
		s.BigBlind = config.C.Game.BigBlind
		s.BuyIn = config.C.Game.DefaultBuyIn
		s.ShowdownTimeout = time.Duration(config.C.Game.ShowdownTimeoutSec) * time.Second
		s.InterHandDelay = time.Duration(config.C.Game.InterHandDelaySec) * time.Second
	}
	return s
}
