package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"encantia/internal/config"
	"encantia/internal/database"
	"encantia/internal/logging"
	"encantia/internal/models"
	"encantia/internal/repositories"
	"encantia/internal/repositories/postgres"
	"encantia/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logging.Init(cfg.Log.Level, cfg.Log.Format)

	slog.Info("Starting database seeding...")

	// Connect to database, migrating first so a fresh database works
	db, err := database.Open(cfg.Database.Driver, cfg.Database.URI)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	slog.Info("Database connection established")

	ctx := context.Background()
	userRepo := postgres.NewUserRepository(db)
	profileService := services.NewProfileService(postgres.NewProfileRepository(db), nil, nil)

	// Seed initial users
	slog.Info("Creating initial users...")
	users := []struct {
		name     string
		email    string
		password string
		role     string
	}{
		{"Admin", "admin@encantia.lat", "123456", models.RoleAdmin},
		{"Lectora", "lectora@encantia.lat", "123456", models.RoleUser},
		{"Escritor", "escritor@encantia.lat", "123456", models.RoleUser},
	}
	for _, u := range users {
		hashed, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal("Failed to hash password:", err)
		}
		user := &models.User{ID: uuid.NewString(), Email: u.email, Password: string(hashed), Role: u.role}
		if err := userRepo.Create(ctx, user); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				slog.Warn("User already exists", "email", u.email)
				continue
			}
			log.Fatal("Failed to create user:", err)
		}
		if _, err := profileService.Create(ctx, user.ID, user.Email, u.name, ""); err != nil {
			slog.Warn("Could not create profile", "email", u.email, "error", err)
			continue
		}
		slog.Info("Created user", "email", u.email, "id", user.ID, "role", u.role)
	}

	// Seed content, only into empty tables so the command can be rerun
	slog.Info("Creating initial content...")
	now := time.Now()
	seedTable(db, "events", []models.Event{
		{Name: "Concurso de relatos de otoño", Date: now.AddDate(0, 0, 14), Description: "Relatos breves con temática otoñal", Status: models.EventStatusConfirmed},
		{Name: "Maratón de lectura", Date: now.AddDate(0, 1, 0), Description: "24 horas leyendo juntos", Status: models.EventStatusPending},
		{Name: "Concurso de poesía", Date: now.AddDate(0, -1, 0), Description: "Edición de primavera", Winner: "Lectora", Status: models.EventStatusFinished},
	})
	seedTable(db, "books", []models.Book{
		{Title: "El bosque de las palabras", Author: "Escritor", Description: "Primera antología de la comunidad"},
		{Title: "Cartas al invierno", Author: "Lectora", Description: "Poemario colectivo"},
	})
	seedTable(db, "team", []models.TeamMember{
		{Name: "Admin", Role: "Fundador", Description: "Mantiene el portal en pie"},
		{Name: "Lectora", Role: "Moderación", Description: "Cuida el buen ambiente"},
	})
	seedTable(db, "updates", []models.Update{
		{Title: "Nuevo directorio de perfiles", Content: "Ahora puedes ver a todos los miembros agrupados por rol."},
		{Title: "Conecta tu Spotify", Content: "Muestra lo que estás escuchando en tu perfil."},
	})
	seedTable(db, "alerts", []models.Alert{
		{Message: "¡Bienvenidos al nuevo portal de Encantia!", Type: models.AlertInfo, Active: true},
	})

	slog.Info("Database seeding completed successfully!")
}

func seedTable[T any](db *gorm.DB, name string, rows []T) {
	var count int64
	if err := db.Model(new(T)).Count(&count).Error; err != nil {
		slog.Warn("Could not count rows", "table", name, "error", err)
		return
	}
	if count > 0 {
		slog.Info("Table already has data, skipping", "table", name, "rows", count)
		return
	}
	if err := db.Create(&rows).Error; err != nil {
		slog.Warn("Failed to seed table", "table", name, "error", err)
		return
	}
	slog.Info("Seeded table", "table", name, "rows", len(rows))
}
