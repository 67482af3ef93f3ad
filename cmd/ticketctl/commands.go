package main

import (
	"fmt"
	"os"
	"time"

	"moviebooking/internal/analytics"
	"moviebooking/internal/movies"
	"moviebooking/internal/shared/apperr"
	"moviebooking/internal/users"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var sampleCatalog = []movies.CreateMovieRequest{
	{MovieName: "Inception", TheatreName: "PVR Phoenix", TotalTickets: 120, TicketPrice: 250, Genre: "Sci-Fi", Language: "English", DurationMinutes: 148, Rating: 8.8,
		ShowTimes: []movies.ShowTime{{Time: "18:30", Date: "daily", Screen: "Audi 2"}}},
	{MovieName: "Inception", TheatreName: "INOX Nariman Point", TotalTickets: 80, TicketPrice: 300, Genre: "Sci-Fi", Language: "English", DurationMinutes: 148, Rating: 8.8},
	{MovieName: "Spirited Away", TheatreName: "PVR Phoenix", TotalTickets: 60, TicketPrice: 200, Genre: "Animation", Language: "Japanese", DurationMinutes: 125, Rating: 8.6},
	{MovieName: "Dangal", TheatreName: "Cinepolis Andheri", TotalTickets: 150, TicketPrice: 180, Genre: "Drama", Language: "Hindi", DurationMinutes: 161, Rating: 8.3},
	{MovieName: "Interstellar", TheatreName: "INOX Nariman Point", TotalTickets: 100, TicketPrice: 320, Genre: "Sci-Fi", Language: "English", DurationMinutes: 169, Rating: 8.7},
}

func newSeedCmd() *cobra.Command {
	var adminLogin, adminEmail, adminPassword string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Add the sample catalog and an admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			added := 0
			for i := range sampleCatalog {
				req := sampleCatalog[i]
				if _, err := services.Movies.AddMovie(ctx, &req); err != nil {
					if apperr.KindOf(err) == apperr.KindConflict {
						continue
					}
					return fmt.Errorf("failed to add %s @ %s: %w", req.MovieName, req.TheatreName, err)
				}
				added++
			}
			fmt.Printf("catalog: %d added, %d already present\n", added, len(sampleCatalog)-added)

			exists, err := backend.Users.LoginNameExists(ctx, adminLogin)
			if err != nil {
				return err
			}
			if exists {
				fmt.Printf("admin %q already exists\n", adminLogin)
				return nil
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
			admin := &users.User{
				ID:        uuid.New(),
				LoginName: adminLogin,
				FirstName: "Box",
				LastName:  "Office",
				Email:     adminEmail,
				Password:  string(hash),
				Role:      users.RoleAdmin,
			}
			if err := backend.Users.CreateUser(ctx, admin); err != nil {
				return err
			}
			fmt.Printf("admin %q created\n", adminLogin)
			return nil
		},
	}

	cmd.Flags().StringVar(&adminLogin, "admin-login", "admin", "login name of the seeded admin")
	cmd.Flags().StringVar(&adminEmail, "admin-email", "admin@moviebooking.local", "email of the seeded admin")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "admin123", "password of the seeded admin")
	return cmd
}

func newReconcileCmd() *cobra.Command {
	var movieName, theatreName string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Rebuild available-ticket counters from the booking ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if movieName != "" || theatreName != "" {
				if movieName == "" || theatreName == "" {
					return fmt.Errorf("--movie and --theatre must be given together")
				}
				movie, err := services.Bookings.Recalculate(ctx, movies.Pair{Movie: movieName, Theatre: theatreName})
				if err != nil {
					return err
				}
				renderMovies([]movies.Movie{*movie})
				return nil
			}

			changed, err := services.Bookings.ReconcileAll(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("reconciled every pair, %d counters corrected\n", changed)
			return nil
		},
	}

	cmd.Flags().StringVar(&movieName, "movie", "", "movie name")
	cmd.Flags().StringVar(&theatreName, "theatre", "", "theatre name")
	return cmd
}

func newPurgeCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete CANCELLED bookings older than the retention age",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("older-than") {
				olderThan = services.Analytics.RetentionAge()
			}
			result, err := services.Analytics.PurgeCancelled(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Printf("purged %d cancelled bookings changed before %s\n", result.Purged, result.Cutoff.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "age of cancellations to delete (default: JOBS_RETENTION_AGE)")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "stats movies|theatres|users|overview",
		Short:     "Print confirmed booking statistics",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"movies", "theatres", "users", "overview"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if args[0] == "overview" {
				dashboard, err := services.Analytics.Dashboard(ctx)
				if err != nil {
					return err
				}
				renderOverview(&dashboard.Overview)
				return nil
			}

			dims := map[string]analytics.Dimension{
				"movies":   analytics.ByMovie,
				"theatres": analytics.ByTheatre,
				"users":    analytics.ByUser,
			}
			dim, ok := dims[args[0]]
			if !ok {
				return fmt.Errorf("unknown statistics group %q", args[0])
			}

			stats, err := services.Analytics.StatsBy(ctx, dim)
			if err != nil {
				return err
			}
			renderStats(args[0], stats)
			return nil
		},
	}
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	return t
}

func renderStats(group string, stats []analytics.GroupStats) {
	t := newTable()
	t.AppendHeader(table.Row{group, "Bookings", "Tickets", "Revenue", "Avg tickets", "Avg value"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMax: 32},
		{Number: 4, Align: text.AlignRight},
	})

	var bookings, tickets int64
	var revenue float64
	for _, s := range stats {
		t.AppendRow(table.Row{
			s.Key, s.Bookings, s.Tickets,
			fmt.Sprintf("%.2f", s.Revenue),
			fmt.Sprintf("%.2f", s.AvgTicketsPerBooking),
			fmt.Sprintf("%.2f", s.AvgBookingValue),
		})
		bookings += s.Bookings
		tickets += s.Tickets
		revenue += s.Revenue
	}
	t.AppendFooter(table.Row{"total", bookings, tickets, fmt.Sprintf("%.2f", revenue), "", ""})
	t.Render()
}

func renderOverview(o *analytics.Overview) {
	t := newTable()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Bookings", o.TotalBookings},
		{"Confirmed", o.ConfirmedBookings},
		{"Cancelled", o.CancelledBookings},
		{"Cancellation rate", fmt.Sprintf("%.1f%%", o.CancellationRate)},
		{"Tickets sold", o.TicketsSold},
		{"Revenue", fmt.Sprintf("%.2f", o.Revenue)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Screenings", o.Screenings},
		{"Sold out", o.SoldOutScreenings},
		{"Capacity", o.TotalCapacity},
		{"Available", o.AvailableTickets},
		{"Utilization", fmt.Sprintf("%.1f%%", o.Utilization)},
	})
	t.Render()
}

func renderMovies(list []movies.Movie) {
	t := newTable()
	t.AppendHeader(table.Row{"Movie", "Theatre", "Total", "Available", "Status"})
	for _, m := range list {
		t.AppendRow(table.Row{m.MovieName, m.TheatreName, m.TotalTickets, m.AvailableTickets, m.Status})
	}
	t.Render()
}
