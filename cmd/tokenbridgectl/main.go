package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL   string
	APIKey    string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("X-Admin-API-Key", c.APIKey)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func main() {
	var (
		baseURL = envOr("TOKENBRIDGE_URL", "http://localhost:8080")
		apiKey  = envOr("TOKENBRIDGE_ADMIN_KEY", "")
		out     = envOr("TOKENBRIDGE_OUT", "text")
	)

	root := &cobra.Command{
		Use:   "tokenbridgectl",
		Short: "CLI admin para TokenBridge (rutas /admin)",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" {
				return fmt.Errorf("falta API key (flag --admin-api-key o env TOKENBRIDGE_ADMIN_KEY)")
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del broker (env TOKENBRIDGE_URL)")
	root.PersistentFlags().StringVar(&apiKey, "admin-api-key", apiKey, "API key admin (env TOKENBRIDGE_ADMIN_KEY)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	cl := &client{BaseURL: baseURL, APIKey: apiKey, OutFormat: out, HTTP: &http.Client{Timeout: 30 * time.Second}}
	cobra.OnInitialize(func() {
		cl.BaseURL, cl.APIKey, cl.OutFormat = baseURL, apiKey, out
	})

	// ping: usa GET /admin/customers para verificar llave y conectividad
	pingCmd := &cobra.Command{
		Use:   "ping",
		Short: "Ping al Admin API (requiere X-Admin-API-Key)",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/admin/customers")
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("ping fallo: status=%d body=%s", status, string(body))
			}
			if cl.OutFormat == "text" {
				fmt.Println("ok")
				return nil
			}
			cl.print(status, []byte(`{"ok":true}`))
			return nil
		},
	}

	customersCmd := &cobra.Command{
		Use:   "customers",
		Short: "Operaciones sobre customers",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Listar customers (más recientes primero)",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/admin/customers")
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("list fallo: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <customer-id>",
		Short: "Borrar un customer (hard delete, incluye sheet links)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("DELETE", "/admin/customer/"+args[0])
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("delete fallo: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}

	customersCmd.AddCommand(listCmd, deleteCmd)
	root.AddCommand(pingCmd, customersCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
