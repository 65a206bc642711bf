package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"food-ordering/api/dashboard"
	"food-ordering/api/feedclient"
	"food-ordering/api/models"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a restaurant's orders live in the terminal",
	Long: `watch opens the owner's order board for a restaurant. New orders ring the
terminal bell. Type "<action> <order id>" to move an order along
(start_preparing, mark_ready, complete, cancel) or "tab <name>" to switch
between pending, preparing, ready, completed and all.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		restaurantID := viper.GetString("restaurant")
		if restaurantID == "" {
			return fmt.Errorf("--restaurant is required")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client := feedclient.New(viper.GetString("api"), viper.GetString("token"))
		return watch(ctx, client, restaurantID, dashboard.Tab(viper.GetString("tab")), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	watchCmd.Flags().String("restaurant", "", "restaurant id to watch")
	watchCmd.Flags().String("token", "", "owner session token")
	watchCmd.Flags().String("api", "http://localhost:8080", "API base URL")
	watchCmd.Flags().String("tab", string(dashboard.TabPending), "status tab to show")
	cobra.CheckErr(viper.BindPFlags(watchCmd.Flags()))
}

// terminal draws the board and rings the bell for new orders.
type terminal struct {
	mu  sync.Mutex
	out io.Writer
	tab dashboard.Tab
}

func (t *terminal) NewOrder(o models.Order) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.out, "\a>> New %s order from %s\n", o.Type, displayName(o))
	return err
}

func displayName(o models.Order) string {
	if o.UserName != "" {
		return o.UserName
	}
	return "Customer"
}

func (t *terminal) setTab(tab dashboard.Tab) {
	t.mu.Lock()
	t.tab = tab
	t.mu.Unlock()
}

func (t *terminal) draw(board *dashboard.OrderBoard) {
	t.mu.Lock()
	defer t.mu.Unlock()

	orders := board.Visible(t.tab)
	fmt.Fprintf(t.out, "\n== %s (%d) ==\n", t.tab, len(orders))
	for _, o := range orders {
		fmt.Fprintf(t.out, "%-36s  %-9s  %-8s  %-20s  %8s  %s\n",
			o.ID, o.Status, o.Type, displayName(o), o.TotalAmount.StringFixed(2), o.CreatedAt.Local().Format("15:04"))
	}
}

func validTab(tab dashboard.Tab) bool {
	for _, t := range dashboard.Tabs {
		if t == tab {
			return true
		}
	}
	return false
}

func watch(ctx context.Context, source dashboard.OrderSource, restaurantID string, tab dashboard.Tab, in io.Reader, out io.Writer) error {
	if !validTab(tab) {
		return fmt.Errorf("unknown tab %q", tab)
	}
	term := &terminal{out: out, tab: tab}
	board := dashboard.NewOrderBoard(source, restaurantID, term)
	board.OnChange = func() { term.draw(board) }

	if err := board.Start(ctx); err != nil {
		return err
	}
	defer board.Stop()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				<-ctx.Done()
				return nil
			}
			if err := runCommand(ctx, board, term, line); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}
	}
}

func runCommand(ctx context.Context, board *dashboard.OrderBoard, term *terminal, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	if len(fields) != 2 {
		return fmt.Errorf("expected \"<action> <order id>\" or \"tab <name>\"")
	}
	if fields[0] == "tab" {
		tab := dashboard.Tab(fields[1])
		if !validTab(tab) {
			return fmt.Errorf("unknown tab %q", tab)
		}
		term.setTab(tab)
		term.draw(board)
		return nil
	}
	return board.Transition(ctx, fields[1], models.OrderAction(fields[0]))
}
