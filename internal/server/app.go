package server

import (
	"context"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/huertohogar/huerto/app/controllers"
	"github.com/huertohogar/huerto/app/repositories"
	"github.com/huertohogar/huerto/app/routes"
	"github.com/huertohogar/huerto/app/services"
	"github.com/huertohogar/huerto/pkg/cache"
	"github.com/huertohogar/huerto/pkg/event"
	"github.com/huertohogar/huerto/pkg/logger"
	"github.com/huertohogar/huerto/pkg/metrics"
	"github.com/huertohogar/huerto/pkg/middleware"
	"github.com/huertohogar/huerto/pkg/pocketbase"
	"github.com/huertohogar/huerto/pkg/reqid"
	"github.com/huertohogar/huerto/pkg/router"
	"github.com/huertohogar/huerto/pkg/schedule"
)

// Options are the collaborators App is built from.
type Options struct {
	DB          *gorm.DB
	Cache       *cache.Cache
	Remote      *pocketbase.Client
	CacheTTL    time.Duration
	CORSOrigins []string
	AdminKey    string
}

// App holds the wired stores and services of one running instance.
type App struct {
	Bus *event.Bus

	Cart    *repositories.CartRepository
	Orders  *repositories.OrderRepository
	Journal *repositories.JournalRepository
	Mirror  *repositories.ProductMirrorRepository

	Catalog   *services.CatalogService
	Admin     *services.AdminService
	Accounts  *services.AccountService
	Checkout  *services.CheckoutService
	Reconcile *services.ReconcileService

	corsOrigins []string
	adminKey    string
}

// New wires every store and service around opts.DB and opts.Remote.
func New(opts Options) *App {
	bus := event.New()

	a := &App{
		Bus:         bus,
		Cart:        repositories.NewCartRepository(opts.DB, bus),
		Orders:      repositories.NewOrderRepository(opts.DB, bus),
		Journal:     repositories.NewJournalRepository(opts.DB),
		Mirror:      repositories.NewProductMirrorRepository(opts.DB),
		corsOrigins: opts.CORSOrigins,
		adminKey:    opts.AdminKey,
	}

	a.Catalog = services.NewCatalogService(opts.Remote, a.Mirror, opts.Cache, opts.CacheTTL)
	a.Admin = services.NewAdminService(opts.Remote, a.Catalog, a.Mirror)
	a.Accounts = services.NewAccountService(opts.Remote)
	a.Checkout = services.NewCheckoutService(opts.Remote, a.Cart, a.Orders, a.Journal, bus)
	a.Reconcile = services.NewReconcileService(a.Journal)

	// Checkout changes remote stock; drop the cached listing.
	bus.Listen(services.TopicCheckoutCompleted, func(interface{}) {
		a.Catalog.Invalidate(context.Background())
	})

	return a
}

// Jobs registers the background jobs of a serving instance: the reconcile
// sweep, run at start-up and every reconcileAfter, and the catalogue sync.
func (a *App) Jobs(s *schedule.Scheduler, reconcileAfter, syncEvery time.Duration) {
	s.Every(reconcileAfter).Name("checkout.reconcile").Immediately().Run(func(ctx context.Context) error {
		_, err := a.Reconcile.Sweep(ctx, reconcileAfter)
		return err
	})
	s.Every(syncEvery).Name("catalog.sync").Run(func(ctx context.Context) error {
		n, err := a.Catalog.Sync(ctx)
		if err == nil {
			logger.Debug("catalog synced", "products", n)
		}
		return err
	})
}

// Close detaches every event listener and ends all live streams.
func (a *App) Close() {
	a.Bus.Flush()
}

// Controllers builds the HTTP controllers over the app's services.
func (a *App) Controllers() routes.Controllers {
	return routes.Controllers{
		Products: controllers.NewProductController(a.Catalog),
		Admin:    controllers.NewAdminController(a.Admin),
		Accounts: controllers.NewAccountController(a.Accounts),
		Cart:     controllers.NewCartController(a.Cart, a.Catalog),
		Checkout: controllers.NewCheckoutController(a.Checkout),
		Orders:   controllers.NewOrderController(a.Orders),
		AdminKey: a.adminKey,
	}
}

// Handler builds the router with the global middleware stack.
func (a *App) Handler() http.Handler {
	r := router.New()

	// Outermost first. Recovery sits inside Logger so panics are logged with
	// the request id.
	r.Use(metrics.Middleware())
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS(middleware.DefaultCORSOptions(a.corsOrigins...)))

	routes.RegisterAPI(r, a.Controllers())
	return r.Handler()
}
