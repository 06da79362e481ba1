package banner

import (
	"fmt"

	"parrotdb/pkg/config"
)

const banner = `
██████╗  █████╗ ██████╗ ██████╗  ██████╗ ████████╗██████╗ ██████╗
██╔══██╗██╔══██╗██╔══██╗██╔══██╗██╔═══██╗╚══██╔══╝██╔══██╗██╔══██╗
██████╔╝███████║██████╔╝██████╔╝██║   ██║   ██║   ██║  ██║██████╔╝
██╔═══╝ ██╔══██║██╔══██╗██╔══██╗██║   ██║   ██║   ██║  ██║██╔══██╗
██║     ██║  ██║██║  ██║██║  ██║╚██████╔╝   ██║   ██████╔╝██████╔╝
╚═╝     ╚═╝  ╚═╝╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝    ╚═╝   ╚═════╝ ╚═════╝
`

// Print writes the startup banner with the effective listen address, store
// path and version, followed by the endpoint cheat sheet and a short
// production checklist.
func Print(cfg *config.Config, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", cfg.Addr())
	fmt.Printf("DB Path:  %s\n", cfg.Storage.DBPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("GET /v1/chat?text=<message>                  - Get a reply")
	fmt.Println("GET /v1/chat?teach=<message>&reply=<r1,r2>   - Teach replies")
	fmt.Println("GET /v1/chat?teach=<message>&react=<emoji>   - Teach reactions")
	fmt.Println("GET /v1/chat?remove=<message>[&index=<n>]    - Remove an entry or one reply")
	fmt.Println("GET /v1/chat?edit=<old>&replace=<new>        - Rename an entry")
	fmt.Println("GET /v1/chat?list=all | list=<message>       - Browse the catalog")
	fmt.Println("GET /v1/chat?search=<query>                  - Search messages and replies")
	fmt.Println("GET /v1/chat?random=true | stats=true        - Random entry / statistics")
	fmt.Println("GET /v1/stats                                - Catalog statistics")

	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl 'http://localhost%s/v1/chat?teach=hi&reply=Hello,Hi+there'\n", portSuffix(cfg))
	fmt.Printf("curl 'http://localhost%s/v1/chat?text=hi'\n", portSuffix(cfg))

	fmt.Println("\n== Production? =================================================")
	if cfg.Security.AdminKey != "" {
		fmt.Println("- Admin key: OK")
	} else {
		fmt.Println("- Admin key: MISSING (admin routes will reject every request)")
	}
	if len(cfg.Security.CORS.AllowedOrigins) > 0 {
		fmt.Printf("- CORS origins: %d configured\n", len(cfg.Security.CORS.AllowedOrigins))
	} else {
		fmt.Println("- CORS origins: none (browser clients will be blocked)")
	}
	if cfg.Retention.Enabled {
		fmt.Printf("- Retention: enabled (%s)\n", cfg.Retention.Cron)
	} else {
		fmt.Println("- Retention: disabled")
	}
}

func portSuffix(cfg *config.Config) string {
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf(":%d", port)
}
