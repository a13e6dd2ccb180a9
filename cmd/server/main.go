package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"embervale/server/catalogs"
	"embervale/server/config"
	"embervale/server/handlers"
	"embervale/server/models"
	"embervale/server/network"
	"embervale/server/persistence"
	"embervale/server/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func openStorage(cfg config.Config) (persistence.Storage, error) {
	switch cfg.Storage.Backend {
	case "postgres":
		return persistence.NewPostgresStore(cfg.Storage.DSN)
	case "sqlite":
		return persistence.NewSQLiteStore(cfg.DataDir)
	default:
		return persistence.NewJSONStore(cfg.DataDir)
	}
}

func main() {
	configPath := flag.String("config", "", "path to config YAML")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store, err := openStorage(cfg)
	if err != nil {
		log.Fatalf("storage (%s): %v", cfg.Storage.Backend, err)
	}
	defer store.Close()
	log.Printf("storage backend: %s", cfg.Storage.Backend)

	cat, err := catalogs.Load(cfg.DataDir)
	if err != nil {
		log.Fatalf("catalogs: %v", err)
	}

	cm := services.NewChunkManager(cfg.WorldSeed, store)
	if err := cm.LoadOverrides(); err != nil {
		log.Fatalf("tile overrides: %v", err)
	}

	world := services.NewWorldService(cm, cat, cfg.TickHz, cfg.WorldSeed)
	players, err := services.NewPlayerService(world, store, time.Duration(cfg.FlushSeconds)*time.Second)
	if err != nil {
		log.Fatalf("accounts: %v", err)
	}

	manager := handlers.NewClientManager()
	world.SetBroadcaster(manager)

	// carve the starting area, then place its NPCs
	services.EnsureStartingVillage(cm)
	services.EnsureTowerEntrance(cm)
	if err := cm.SaveOverrides(); err != nil {
		log.Printf("save overrides: %v", err)
	}
	world.SpawnMerchant(-8*models.TileSize, -2*models.TileSize, "weaponsmith")
	world.SpawnMerchant(6*models.TileSize, -2*models.TileSize, "alchemist")
	questIDs := make([]string, 0, len(cat.Quests))
	for qid := range cat.Quests {
		questIDs = append(questIDs, qid)
	}
	sort.Strings(questIDs)
	if len(questIDs) > 2 {
		questIDs = questIDs[:2]
	}
	world.SpawnQuestGiver(0, 6*models.TileSize, questIDs, "Village Steward")
	world.SpawnTowerGuardian(0, 0, "Tower Guardian")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	world.SeedInitialMobs()
	go world.Run(ctx)
	go players.FlushLoop(ctx)
	if cfg.BackupMinutes > 0 {
		go backupLoop(ctx, players, cfg)
	}

	startedAt := time.Now()
	go serveHTTP(cfg.HTTPAddr, world, players, manager, startedAt)

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		log.Fatalf("listen %s: %v", cfg.ListenAddr, err)
	}
	log.Printf("game server listening on %s (tcp) and %s (http)", cfg.ListenAddr, cfg.HTTPAddr)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}
			log.Printf("accept: %v", err)
			continue
		}
		go serveTCP(c, manager, world, players)
	}

	log.Print("shutting down")
	players.FlushNow()
	if err := cm.SaveOverrides(); err != nil {
		log.Printf("save overrides: %v", err)
	}
}

func serveTCP(c net.Conn, manager *handlers.ClientManager, world *services.WorldService, players *services.PlayerService) {
	conn := network.NewTCPConn(c)
	go conn.WritePump()
	h := handlers.NewClientHandler(manager, world, players)
	conn.ReadPump(h)
	h.Disconnect()
}

func backupLoop(ctx context.Context, players *services.PlayerService, cfg config.Config) {
	ticker := time.NewTicker(time.Duration(cfg.BackupMinutes) * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := players.Backup(cfg.DataDir, cfg.BackupKeep); err != nil {
				log.Printf("backup: %v", err)
			}
		}
	}
}

func serveHTTP(addr string, world *services.WorldService, players *services.PlayerService, manager *handlers.ClientManager, startedAt time.Time) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		players, npcs := world.Counts()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"sessions": manager.Count(),
			"players":  players,
			"npcs":     npcs,
			"uptime_s": int(time.Since(startedAt).Seconds()),
		})
	})

	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		ws, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			log.Printf("ws upgrade: %v", err)
			return
		}
		conn := network.NewWSConn(ws)
		go conn.WritePump()
		h := handlers.NewClientHandler(manager, world, players)
		go func() {
			conn.ReadPump(h)
			h.Disconnect()
		}()
	})

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Printf("http server: %v", err)
	}
}
