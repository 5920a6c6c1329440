/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/health           Liveness
  /api/auth/*           Login, sign-up, session
  /api/events           Change notifications (any logged-in user)
  /api/admin/*          Admin portal (admin token required)
  /api/employee/*       Employee portal (employee token required)
  /*                    Static files (frontend)

STATIC FILE SERVING:
  In production, serves the built React app from web/dist/.
  Falls back to index.html for client-side routing.

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Authenticated and RequireRole middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/tess/backoffice/records"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/signup", h.SignUp)

		r.Group(func(r chi.Router) {
			r.Use(h.Authenticated)

			r.Get("/auth/me", h.Me)
			r.Post("/auth/password", h.ChangePassword)
			r.Get("/events", h.StreamEvents)

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireRole(records.RoleAdmin))
				adminRoutes(r, h)
			})

			r.Route("/employee", func(r chi.Router) {
				r.Use(RequireRole(records.RoleEmployee))
				employeeRoutes(r, h)
			})
		})
	})

	serveStatic(r)
	return r
}

func adminRoutes(r chi.Router, h *Handler) {
	r.Get("/dashboard", h.AdminDashboard)

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateAdmin)
		r.Delete("/{id}", h.DeleteUser)
	})

	r.Route("/employees", func(r chi.Router) {
		r.Get("/", h.ListEmployees)
		r.Put("/{id}", h.UpdateEmployee)
	})

	r.Route("/inventory", func(r chi.Router) {
		r.Get("/", h.ListInventory)
		r.Post("/", h.CreateItem)
		r.Get("/categories", h.ListCategories)
		r.Get("/critical", h.ListCritical)
		r.Get("/expiring", h.ListExpiring)
		r.Post("/import", h.ImportInventory)
		r.Get("/{id}", h.GetItem)
		r.Put("/{id}", h.UpdateItem)
		r.Delete("/{id}", h.DeleteItem)
		r.Post("/{id}/restock", h.RestockItem)
	})

	r.Route("/sales", func(r chi.Router) {
		r.Get("/", h.ListSales)
		r.Post("/", h.Checkout)
		r.Get("/{id}", h.GetSale)
	})

	r.Route("/production", func(r chi.Router) {
		r.Get("/", h.ListProduction)
		r.Post("/{id}/review", h.ReviewProduction)
		r.Delete("/{id}", h.DeleteProduction)
	})

	r.Route("/payroll", func(r chi.Router) {
		r.Post("/generate", h.GenerateSalaries)
		r.Get("/runs", h.ListPayrollRuns)
		r.Get("/scheduler", h.GetScheduler)
		r.Post("/scheduler/run", h.RunScheduler)
	})

	r.Route("/salaries", func(r chi.Router) {
		r.Get("/", h.ListSalaries)
		r.Get("/{id}", h.GetSalary)
		r.Put("/{id}", h.EditSalary)
		r.Post("/{id}/status", h.AdvanceSalary)
		r.Delete("/{id}", h.DeleteSalary)
	})

	r.Route("/reports", func(r chi.Router) {
		r.Get("/sales/daily", h.DailySalesReport)
		r.Get("/sales/monthly", h.MonthlySalesReport)
		r.Get("/inventory", h.InventoryReport)
		r.Get("/expiring", h.ExpiringReport)
	})

	r.Route("/exports", func(r chi.Router) {
		r.Get("/payroll.xlsx", h.ExportPayroll)
		r.Get("/sales.xlsx", h.ExportSales)
	})

	r.Route("/scenarios", func(r chi.Router) {
		r.Get("/", h.ListScenarios)
		r.Get("/current", h.GetCurrentScenario)
		r.Post("/load", h.LoadScenario)
		r.Post("/reset", h.ResetDatabase)
	})
}

func employeeRoutes(r chi.Router, h *Handler) {
	r.Get("/dashboard", h.EmployeeDashboard)
	r.Get("/profile", h.MyProfile)
	r.Get("/inventory", h.ListInventory)

	r.Route("/production", func(r chi.Router) {
		r.Get("/", h.ListMyProduction)
		r.Post("/", h.SubmitMyProduction)
	})

	r.Route("/salaries", func(r chi.Router) {
		r.Get("/", h.ListMySalaries)
		r.Get("/{id}", h.GetMySalary)
	})
}

// serveStatic serves the React app from ./web/dist, or from web/dist next
// to the executable.
func serveStatic(r *chi.Mux) {
	staticDir := "./web/dist"
	if _, err := os.Stat(staticDir); os.IsNotExist(err) {
		exe, _ := os.Executable()
		staticDir = filepath.Join(filepath.Dir(exe), "web", "dist")
	}

	if _, err := os.Stat(staticDir); err == nil {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			fullPath := filepath.Join(staticDir, filepath.Clean(r.URL.Path))
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				// SPA routing: serve index.html
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
		return
	}

	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Tess Frozen Foods Back Office</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Tess Frozen Foods Back Office API</h1>
<p>The frontend is not built yet. Run <code>cd web && npm install && npm run build</code></p>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/health">/api/health</a> - Health check</li>
<li>POST /api/auth/login - Sign in to the admin or employee portal</li>
<li>/api/admin/* - Admin portal (inventory, sales, payroll, reports)</li>
<li>/api/employee/* - Employee portal (production log, salaries)</li>
</ul>
</body>
</html>`))
	})
}
