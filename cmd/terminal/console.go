package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	catalogapp "github.com/chrisfalcon1208/apprest/internal/application/catalog"
	"github.com/chrisfalcon1208/apprest/internal/application/checkout"
	"github.com/chrisfalcon1208/apprest/internal/application/mirror"
	"github.com/chrisfalcon1208/apprest/internal/application/ordering"
	"github.com/chrisfalcon1208/apprest/internal/application/report"
	"github.com/chrisfalcon1208/apprest/internal/domain/order"
)

const usage = `commands:
  tables                      floor overview
  kitchen                     kitchen queue
  menu                        products by code
  add <table> <code> [qty]    add a product to a table
  qty <line> <n>              set a line's quantity
  note <line> <text>          set a line's note
  del <line>                  delete a line
  send <table>                send unsent lines to the kitchen
  advance <line>              move a line one stage forward
  revert <line>               move a line one stage back
  customer <table> <name>     set the table's customer
  mode <table> <mode>         LOCAL, TAKEAWAY or DELIVERY
  lines <table>               lines of a table
  close <table> <tendered>    settle a table
  clear <table>               remove every line of a table
  report                      today's sales
  quit`

// console renders the floor and turns stdin lines into service calls
type console struct {
	out      io.Writer
	store    *mirror.Store
	orders   *ordering.Service
	checkout *checkout.Service
	catalog  *catalogapp.Service
	reports  *report.Service

	mu   sync.Mutex
	last string
}

// onChange prints the floor when it looks different from the last print
func (c *console) onChange(_ mirror.Change) {
	if !c.store.Loaded() {
		return
	}
	view := c.floor()
	c.mu.Lock()
	defer c.mu.Unlock()
	if view == c.last {
		return
	}
	c.last = view
	fmt.Fprint(c.out, view)
}

func (c *console) floor() string {
	var b strings.Builder
	b.WriteString("-- floor --\n")
	for _, t := range c.orders.Overview() {
		if !t.Occupied {
			continue
		}
		flag := ""
		if t.HasUnsent {
			flag = " *unsent*"
		}
		fmt.Fprintf(&b, "table %-3s %-8s %-20s items=%-3d total=%s%s\n",
			t.TableID, t.Mode, t.CustomerName, t.Items, t.Total.StringFixed(2), flag)
	}
	if q := c.orders.KitchenQueue(); len(q) > 0 {
		b.WriteString("-- kitchen --\n")
		for _, ticket := range q {
			fmt.Fprintf(&b, "table %s (%s) since %s\n", ticket.TableID, ticket.Mode, ticket.Since.Format("15:04:05"))
			for _, l := range ticket.Lines {
				fmt.Fprintf(&b, "  %-10s %dx %s %s\n", l.Status, l.Quantity, l.ProductName, l.Note)
			}
		}
	}
	return b.String()
}

// run reads commands until EOF, "quit" or ctx ends
func (c *console) run(ctx context.Context, in io.Reader, quit func()) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			quit()
			return
		}
		if err := c.exec(ctx, line); err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	}
}

func (c *console) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s needs %d argument(s), try help", cmd, n)
		}
		return nil
	}

	switch cmd {
	case "help":
		fmt.Fprintln(c.out, usage)
	case "tables":
		fmt.Fprint(c.out, c.floor())
	case "kitchen":
		for _, t := range c.orders.KitchenQueue() {
			fmt.Fprintf(c.out, "table %s: %d line(s)\n", t.TableID, len(t.Lines))
		}
	case "menu":
		for _, p := range c.catalog.Products("") {
			fmt.Fprintf(c.out, "%-6s %-24s %s\n", p.Code, p.Name, p.Price.StringFixed(2))
		}
	case "add":
		if err := need(2); err != nil {
			return err
		}
		qty := 1
		if len(args) > 2 {
			n, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("quantity %q is not a number", args[2])
			}
			qty = n
		}
		productID, err := c.productByCode(args[1])
		if err != nil {
			return err
		}
		l, err := c.orders.AddItem(args[0], productID, qty)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "line %s: %dx %s\n", l.LocalID, l.Quantity, l.ProductName)
	case "qty":
		if err := need(2); err != nil {
			return err
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("quantity %q is not a number", args[1])
		}
		_, err = c.orders.SetQuantity(args[0], n)
		return err
	case "note":
		if err := need(1); err != nil {
			return err
		}
		_, err := c.orders.UpdateNote(args[0], strings.Join(args[1:], " "))
		return err
	case "del":
		if err := need(1); err != nil {
			return err
		}
		return c.orders.DeleteLine(args[0])
	case "send":
		if err := need(1); err != nil {
			return err
		}
		n, err := c.orders.SendToKitchen(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%d line(s) sent\n", n)
	case "advance", "revert":
		if err := need(1); err != nil {
			return err
		}
		move := c.orders.AdvanceLine
		if cmd == "revert" {
			move = c.orders.RevertLine
		}
		l, err := move(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "line %s is %s\n", l.LocalID, l.Status)
	case "customer":
		if err := need(2); err != nil {
			return err
		}
		return c.orders.SetCustomerName(args[0], strings.Join(args[1:], " "))
	case "mode":
		if err := need(2); err != nil {
			return err
		}
		return c.orders.SetOrderMode(args[0], order.Mode(strings.ToUpper(args[1])))
	case "lines":
		if err := need(1); err != nil {
			return err
		}
		for _, l := range c.orders.Lines(args[0]) {
			fmt.Fprintf(c.out, "%s %-10s %dx %s %s\n", l.LocalID, l.Status, l.Quantity, l.ProductName, l.Note)
		}
	case "close":
		if err := need(2); err != nil {
			return err
		}
		s, err := c.checkout.CloseTable(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "sale #%d total=%s change=%s\n", s.Sequence, s.Total.StringFixed(2), s.Change.StringFixed(2))
	case "clear":
		if err := need(1); err != nil {
			return err
		}
		return c.orders.ClearTable(args[0])
	case "report":
		sum := c.reports.TodaySummary()
		fmt.Fprintf(c.out, "today: %d sale(s), %s\n", sum.Count, sum.Revenue.StringFixed(2))
		for _, p := range c.reports.TopProducts(c.reports.Today(), 5) {
			fmt.Fprintf(c.out, "  %-6s %-24s %d\n", p.Code, p.Name, p.Quantity)
		}
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
	return nil
}

func (c *console) productByCode(code string) (string, error) {
	for _, p := range c.catalog.Products("") {
		if strings.EqualFold(p.Code, code) {
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("no product with code %q", code)
}
