package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/adamscao/pic-certificates/internal/account"
	"github.com/adamscao/pic-certificates/internal/auth"
	"github.com/adamscao/pic-certificates/internal/certificate"
	"github.com/adamscao/pic-certificates/internal/config"
	"github.com/adamscao/pic-certificates/internal/db"
	"github.com/adamscao/pic-certificates/internal/db/repository"
	"github.com/adamscao/pic-certificates/internal/models"
	"github.com/adamscao/pic-certificates/internal/verification"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	cfg        *config.Config
	database   *db.DB
)

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "PIC Certificates administration tool",
	Long:  "Administrative tool for managing PIC Certificates users and certificates",
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user",
	RunE:  createUser,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	RunE:  listUsers,
}

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Inspect certificates stored in the database",
}

var certListCmd = &cobra.Command{
	Use:   "list",
	Short: "List certificates",
	RunE:  listCerts,
}

var certStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show certificate counts by status",
	RunE:  certStats,
}

var certVerifyCmd = &cobra.Command{
	Use:   "verify <certificateId>",
	Short: "Verify a certificate by its public id",
	Args:  cobra.ExactArgs(1),
	RunE:  verifyCert,
}

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Generate configuration secrets",
}

var secretGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print a random hex secret",
	Args:  cobra.NoArgs,
	RunE:  generateSecret,
}

var (
	username   string
	email      string
	password   string
	role       string
	factoryID  string
	enableTOTP bool
	qrPath     string

	ownerID     string
	status      string
	search      string
	limit       int
	secretBytes int
	numericCode int
)

func init() {
	// Root flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/pic-certificates/config.yaml", "Config file path")

	// User create flags
	userCreateCmd.Flags().StringVarP(&username, "username", "u", "", "Username (required)")
	userCreateCmd.Flags().StringVarP(&email, "email", "e", "", "Email address (required)")
	userCreateCmd.Flags().StringVarP(&password, "password", "p", "", "Password (required)")
	userCreateCmd.Flags().StringVarP(&role, "role", "r", string(models.RoleUser), "Role: admin, manager or user")
	userCreateCmd.Flags().StringVar(&factoryID, "factory-id", "", "Factory the user belongs to")
	userCreateCmd.Flags().BoolVar(&enableTOTP, "totp", false, "Enroll a TOTP second factor")
	userCreateCmd.Flags().StringVar(&qrPath, "qr-out", "", "Write the TOTP enrollment QR code PNG to this path")

	userCreateCmd.MarkFlagRequired("username")
	userCreateCmd.MarkFlagRequired("email")
	userCreateCmd.MarkFlagRequired("password")

	// Cert list flags
	certListCmd.Flags().StringVar(&ownerID, "owner", "", "Only certificates of this owner")
	certListCmd.Flags().StringVar(&status, "status", "", "draft, issued, revoked or expired")
	certListCmd.Flags().StringVar(&search, "search", "", "Substring match on name, recipient or certificate id")
	certListCmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows to print")
	certStatsCmd.Flags().StringVar(&ownerID, "owner", "", "Only certificates of this owner")

	secretGenerateCmd.Flags().IntVar(&secretBytes, "bytes", 32, "Random bytes in the secret")
	secretGenerateCmd.Flags().IntVar(&numericCode, "numeric", 0, "Print a numeric code of this many digits instead")

	// Add commands
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userListCmd)
	certCmd.AddCommand(certListCmd)
	certCmd.AddCommand(certStatsCmd)
	certCmd.AddCommand(certVerifyCmd)
	secretCmd.AddCommand(secretGenerateCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(certCmd)
	rootCmd.AddCommand(secretCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initDB() error {
	var err error
	cfg, err = config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	database, err = db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	return nil
}

func newEngine() *certificate.Engine {
	return certificate.NewEngine(repository.NewCertRepository(database.DB), zap.NewNop())
}

func createUser(cmd *cobra.Command, args []string) error {
	if err := initDB(); err != nil {
		return err
	}
	defer database.Close()

	parsedRole, err := models.ParseRole(role)
	if err != nil {
		return err
	}

	accounts := account.NewService(
		repository.NewUserRepository(database.DB),
		nil, nil, nil,
		repository.NewAuditRepository(database.DB, zap.NewNop()),
		cfg.EncryptionKey(),
		zap.NewNop(),
	)

	created, err := accounts.CreateUser(context.Background(), account.CreateUserInput{
		Username:   username,
		Email:      email,
		Password:   password,
		Role:       parsedRole,
		FactoryID:  factoryID,
		EnableTOTP: enableTOTP,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	user := created.User
	fmt.Printf("\nUser created successfully!\n")
	fmt.Printf("User ID:  %d\n", user.ID)
	fmt.Printf("Username: %s\n", user.Username)
	fmt.Printf("Email:    %s\n", user.Email)
	fmt.Printf("Role:     %s\n", user.Role)

	if created.TOTP != nil {
		fmt.Printf("\nTOTP Secret: %s\n", created.TOTP.Secret)
		fmt.Printf("TOTP URL:    %s\n", created.TOTP.URL)

		if qrPath != "" {
			png, err := created.TOTP.QRCodePNG(256)
			if err != nil {
				return fmt.Errorf("failed to render QR code: %w", err)
			}
			if err := os.WriteFile(qrPath, png, 0o600); err != nil {
				return fmt.Errorf("failed to write QR code: %w", err)
			}
			fmt.Printf("QR code written to %s\n", qrPath)
		}
		fmt.Printf("\nScan the QR code with a TOTP app (Google Authenticator, Authy, etc.)\n")
	}

	return nil
}

func listUsers(cmd *cobra.Command, args []string) error {
	if err := initDB(); err != nil {
		return err
	}
	defer database.Close()

	userRepo := repository.NewUserRepository(database.DB)
	users, err := userRepo.List()
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("No users found")
		return nil
	}

	fmt.Printf("\nTotal users: %d\n\n", len(users))
	fmt.Printf("%-5s %-20s %-30s %-8s %-8s %s\n", "ID", "Username", "Email", "Role", "Enabled", "Created")
	fmt.Println("--------------------------------------------------------------------------------------------")

	for _, user := range users {
		enabledStr := "No"
		if user.Enabled {
			enabledStr = "Yes"
		}
		fmt.Printf("%-5d %-20s %-30s %-8s %-8s %s\n",
			user.ID,
			user.Username,
			user.Email,
			user.Role,
			enabledStr,
			user.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}

	return nil
}

func listCerts(cmd *cobra.Command, args []string) error {
	if err := initDB(); err != nil {
		return err
	}
	defer database.Close()

	res, err := newEngine().List(certificate.Filter{
		Status:  models.CertificateStatus(status),
		OwnerID: ownerID,
		Search:  search,
		Limit:   limit,
	})
	if err != nil {
		return fmt.Errorf("failed to list certificates: %w", err)
	}

	if res.Total == 0 {
		fmt.Println("No certificates found")
		return nil
	}

	fmt.Printf("\nTotal certificates: %d (showing %d)\n\n", res.Total, len(res.Items))
	fmt.Printf("%-28s %-30s %-14s %-8s %-10s %s\n", "Certificate ID", "Name", "Type", "Status", "Owner", "Created")
	fmt.Println("------------------------------------------------------------------------------------------------------------")

	for _, cert := range res.Items {
		fmt.Printf("%-28s %-30s %-14s %-8s %-10s %s\n",
			cert.CertificateID,
			truncate(cert.Name, 30),
			cert.Type,
			cert.Status,
			cert.OwnerID,
			cert.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}

	return nil
}

func certStats(cmd *cobra.Command, args []string) error {
	if err := initDB(); err != nil {
		return err
	}
	defer database.Close()

	stats, err := newEngine().Statistics(ownerID)
	if err != nil {
		return fmt.Errorf("failed to compute statistics: %w", err)
	}

	fmt.Printf("Total:   %d\n", stats.Total)
	fmt.Printf("Draft:   %d\n", stats.Draft)
	fmt.Printf("Issued:  %d\n", stats.Issued)
	fmt.Printf("Revoked: %d\n", stats.Revoked)
	fmt.Printf("Expired: %d\n", stats.Expired)
	return nil
}

func verifyCert(cmd *cobra.Command, args []string) error {
	if err := initDB(); err != nil {
		return err
	}
	defer database.Close()

	res := verification.NewService(newEngine(), zap.NewNop()).Verify(args[0])
	if !res.IsValid {
		return fmt.Errorf("%s: %s", args[0], res.Error)
	}

	cert := res.Certificate
	fmt.Printf("%s is valid\n", cert.CertificateID)
	fmt.Printf("Name:      %s\n", cert.Name)
	fmt.Printf("Recipient: %s\n", cert.RecipientName)
	if cert.IssuedAt != nil {
		fmt.Printf("Issued:    %s\n", cert.IssuedAt.Format(time.RFC3339))
	}
	if cert.ExpiresAt != nil {
		fmt.Printf("Expires:   %s\n", cert.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

func generateSecret(cmd *cobra.Command, args []string) error {
	if numericCode > 0 {
		code, err := auth.GenerateNumericOTP(numericCode)
		if err != nil {
			return err
		}
		fmt.Println(code)
		return nil
	}

	secret, err := auth.GenerateSecureToken(secretBytes)
	if err != nil {
		return fmt.Errorf("failed to generate secret: %w", err)
	}
	fmt.Println(secret)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
