// Command client is a manual order-entry tool for exercising a running
// bastion server, adapted from the teacher's cmd/client (flag-parsed,
// connect-and-send) onto the new websocket/JSON wire protocol.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"bastion/internal/frontend"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the bastion websocket server")
	userId := flag.Uint("user", 0, "user id (compulsory)")
	action := flag.String("action", "place", "action to perform: ['place', 'cancel', 'adjust']")

	marketId := flag.Uint("market", 1, "market id")
	sideStr := flag.String("side", "buy", "order side: 'buy' or 'sell'")
	price := flag.String("price", "100.00", "limit price, as a decimal string")
	qty := flag.String("qty", "10", "order size, as a decimal string")
	orderId := flag.Uint64("order", 0, "order id (for place/cancel)")

	assetId := flag.Uint("asset", 1, "asset id (for adjust)")
	change := flag.String("change", "0", "signed balance change, as a decimal string (for adjust)")

	flag.Parse()

	if *userId == 0 {
		fmt.Println("Error: -user is compulsory.")
		flag.Usage()
		os.Exit(1)
	}

	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/ws", RawQuery: fmt.Sprintf("user_id=%d", *userId)}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", u.String(), err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s as user %d\n", u.String(), *userId)

	go readReports(conn)

	switch strings.ToLower(*action) {
	case "place":
		if err := sendNewOrder(conn, *orderId, uint32(*marketId), *sideStr, *price, *qty); err != nil {
			log.Fatalf("failed to send order: %v", err)
		}
		fmt.Printf("-> sent %s order: market %d, %s @ %s\n", strings.ToUpper(*sideStr), *marketId, *qty, *price)

	case "cancel":
		if *orderId == 0 {
			log.Fatal("Error: -order is required for cancel")
		}
		if err := sendCancelOrder(conn, *orderId); err != nil {
			log.Fatalf("failed to send cancel: %v", err)
		}
		fmt.Printf("-> sent cancel for order %d\n", *orderId)

	case "adjust":
		if err := sendAdjustBalance(conn, uint32(*assetId), *change); err != nil {
			log.Fatalf("failed to send adjust: %v", err)
		}
		fmt.Printf("-> sent balance adjustment: asset %d, change %s\n", *assetId, *change)

	default:
		log.Fatalf("unknown action: %s", *action)
	}

	fmt.Println("\nlistening for reports... (press Ctrl+C to exit)")
	select {}
}

type envelope struct {
	Type      string          `json:"type"`
	RequestId string          `json:"request_id"`
	Body      json.RawMessage `json:"body"`
}

func send(conn *websocket.Conn, msgType string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	env := envelope{Type: msgType, RequestId: strconv.FormatInt(int64(os.Getpid()), 10), Body: raw}
	return conn.WriteJSON(env)
}

func sendNewOrder(conn *websocket.Conn, orderId uint64, marketId uint32, side, price, qty string) error {
	return send(conn, string(frontend.NewOrder), map[string]any{
		"order_id":  orderId,
		"market_id": marketId,
		"side":      strings.ToLower(side),
		"price":     price,
		"size":      qty,
	})
}

func sendCancelOrder(conn *websocket.Conn, orderId uint64) error {
	return send(conn, string(frontend.CancelOrder), map[string]any{"order_id": orderId})
}

func sendAdjustBalance(conn *websocket.Conn, assetId uint32, change string) error {
	return send(conn, string(frontend.AdjustBalance), map[string]any{"asset_id": assetId, "change": change})
}

// readReports continuously reads and prints execution/error reports from
// the server, mirroring the teacher's readReports goroutine.
func readReports(conn *websocket.Conn) {
	for {
		var report frontend.Report
		if err := conn.ReadJSON(&report); err != nil {
			log.Printf("connection lost: %v", err)
			os.Exit(0)
		}

		switch report.Type {
		case "error":
			fmt.Printf("\n[SERVER ERROR] (%s) %s\n", report.RequestId, report.Error)
		case "accepted":
			fmt.Printf("\n[ACCEPTED] %s\n", report.RequestId)
		case "execution":
			t := report.Trade
			fmt.Printf("\n[EXECUTION] market %d | side %s | qty %d | price %d | order %d\n",
				t.MarketId, t.Side, t.Size, t.Price, t.OrderId)
		}
	}
}
