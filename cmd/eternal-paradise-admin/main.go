package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"

	"github.com/WithoutFrost/Eternal-Paradise-Project/config"
	"github.com/WithoutFrost/Eternal-Paradise-Project/filter"
	"github.com/WithoutFrost/Eternal-Paradise-Project/globals"
	"github.com/WithoutFrost/Eternal-Paradise-Project/persistence"
	"github.com/WithoutFrost/Eternal-Paradise-Project/repository"
	"github.com/WithoutFrost/Eternal-Paradise-Project/types"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// A very simple CLI tool for the administration of users, organizations, posts and notifications.

var (
	configPath string
	filterExpr string

	store persistence.Store
	repo  *repository.Repository
)

func printJSON(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		globals.AppLogger.Error("could not marshal result", "error", err)
		return
	}
	fmt.Println(string(b))
}

// definition reads a JSON argument. If it is "-", it is read from STDIN.
func definition(arg string, out interface{}) error {
	var r io.Reader
	if arg == "-" {
		r = os.Stdin
	} else {
		r = bytes.NewReader([]byte(arg))
	}
	return json.NewDecoder(r).Decode(out)
}

func showList[T any](list []T, err error) {
	if err != nil {
		globals.AppLogger.Error("could not read", "error", err)
		return
	}
	f, err := filter.Compile(filterExpr)
	if err != nil {
		globals.AppLogger.Error("could not compile filter", "filter", filterExpr, "error", err)
		return
	}
	printJSON(filter.Apply(f, list))
}

func show(v interface{}, err error) {
	if err != nil {
		globals.AppLogger.Error("could not read", "error", err)
		return
	}
	printJSON(v)
}

func check(what string, err error) {
	if err != nil {
		globals.AppLogger.Error("could not "+what, "error", err)
	}
}

// open reads the configuration and opens the store the server would use.
func open(flagSet *pflag.FlagSet) error {
	globalConfig, err := config.ReadConfiguration(configPath, flagSet)
	if err != nil {
		return err
	}
	globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))
	store, err = persistence.NewStore(globalConfig)
	if err != nil {
		return err
	}
	repo = repository.New(store)
	return nil
}

func main() {
	log.SetFlags(0)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var cmdStatus = &cobra.Command{
		Use:   "status",
		Short: "Show the active backend",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printJSON(map[string]bool{"remote": repo.Remote()})
		},
	}

	var cmdShow = &cobra.Command{
		Use:   "show",
		Short: "Show users, organizations, channels, posts or notifications",
		Long:  `show prints stored entities as JSON. Lists can be narrowed with --filter, an expression over the JSON fields of each item.`,
	}
	cmdShow.PersistentFlags().StringVar(&filterExpr, "filter", "", `filter expression, e.g. 'role == "npc"'`)
	var cmdShowUsers = &cobra.Command{
		Use:   "users",
		Short: "Show users",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			v, err := repo.ListUsers(ctx)
			showList(v, err)
		},
	}
	var cmdShowUser = &cobra.Command{
		Use:   "user [user id]",
		Short: "Show user",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			v, err := repo.GetUser(ctx, args[0])
			show(v, err)
		},
	}
	var cmdShowOrgs = &cobra.Command{
		Use:   "orgs",
		Short: "Show organizations",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			v, err := repo.ListOrganizations(ctx)
			showList(v, err)
		},
	}
	var cmdShowChannels = &cobra.Command{
		Use:   "channels",
		Short: "Show channels",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			v, err := repo.ListAllChannels(ctx)
			showList(v, err)
		},
	}
	var cmdShowPosts = &cobra.Command{
		Use:   "posts",
		Short: "Show the feed",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			v, err := repo.ListPosts(ctx)
			showList(v, err)
		},
	}
	var cmdShowNotifications = &cobra.Command{
		Use:   "notifications [user id]",
		Short: "Show the notifications of a user",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			v, err := repo.GetNotifications(ctx, args[0])
			showList(v, err)
		},
	}
	var cmdShowStats = &cobra.Command{
		Use:   "stats [user id]",
		Short: "Show the stats of a user, creating them if missing",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			v, err := repo.GetOrCreateStats(ctx, args[0])
			show(v, err)
		},
	}
	var cmdShowVisibility = &cobra.Command{
		Use:   "visibility [user id]",
		Short: "Show the feature visibility of a user",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			v, err := repo.GetUserVisibility(ctx, args[0])
			show(v, err)
		},
	}

	var cmdSet = &cobra.Command{
		Use:   "set",
		Short: "Create or update users, GM flags, visibility, licenses or stats",
	}
	var cmdSetUser = &cobra.Command{
		Use:   "user [user definition]",
		Short: "Set user",
		Long:  `set user creates or replaces a user with the given definition. If the user definition is "-", it is read from STDIN.`,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			user := types.User{}
			if err := definition(args[0], &user); err != nil {
				globals.AppLogger.Error("could not decode user", "error", err)
				return
			}
			if user.Id == "" {
				globals.AppLogger.Error("no user id")
				return
			}
			if err := repo.EnsureUser(ctx, user); err != nil {
				globals.AppLogger.Error("could not store user", "error", err)
				return
			}
			v, err := repo.GetUser(ctx, user.Id)
			show(v, err)
		},
	}
	var cmdSetGM = &cobra.Command{
		Use:   "gm [user id] [true|false]",
		Short: "Grant or revoke GM rights",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			gm, err := strconv.ParseBool(args[1])
			if err != nil {
				globals.AppLogger.Error("invalid flag value", "value", args[1])
				return
			}
			check("set gm", repo.SetUserGM(ctx, args[0], gm))
		},
	}
	var cmdSetVisibility = &cobra.Command{
		Use:   "visibility [user id] [area] [true|false]",
		Short: "Show or hide a feature area for a user",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			visible, err := strconv.ParseBool(args[2])
			if err != nil {
				globals.AppLogger.Error("invalid flag value", "value", args[2])
				return
			}
			check("set visibility", repo.SetAreaVisibility(ctx, args[0], args[1], visible))
		},
	}
	var cmdSetLicense = &cobra.Command{
		Use:   "license [user id] [license id]",
		Short: "Assign a license",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			check("set license", repo.SetUserLicense(ctx, args[0], args[1]))
		},
	}
	var cmdSetStats = &cobra.Command{
		Use:   "stats [user id] [stats update]",
		Short: "Update stats",
		Long:  `set stats applies a partial stats update such as '{"speed": 80}'. If the update is "-", it is read from STDIN.`,
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			update := types.StatsUpdate{}
			if err := definition(args[1], &update); err != nil {
				globals.AppLogger.Error("could not decode stats update", "error", err)
				return
			}
			v, err := repo.UpdateStats(ctx, args[0], update)
			show(v, err)
		},
	}

	var cmdCreate = &cobra.Command{
		Use:   "create",
		Short: "Create NPCs, organizations or posts",
	}
	var cmdCreateNPC = &cobra.Command{
		Use:   "npc [name] [avatar url]",
		Short: "Create an NPC",
		Args:  cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			avatar := ""
			if len(args) > 1 {
				avatar = args[1]
			}
			v, err := repo.CreateNPC(ctx, args[0], avatar)
			show(v, err)
		},
	}
	var cmdCreateOrg = &cobra.Command{
		Use:   "org [name]",
		Short: "Create an organization and its channel",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			v, err := repo.CreateOrganization(ctx, args[0])
			show(v, err)
		},
	}
	var cmdCreatePost = &cobra.Command{
		Use:   "post [author id] [body]",
		Short: "Publish a post",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			v, err := repo.CreatePost(ctx, args[0], args[1])
			show(v, err)
		},
	}

	var cmdNotify = &cobra.Command{
		Use:   "notify [title] [body]",
		Short: "Send a notification",
		Long:  `notify sends a notification to the user given with --user, or to every user if --user is empty.`,
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			userID, _ := cmd.Flags().GetString("user")
			if userID != "" {
				v, err := repo.SendNotification(ctx, userID, args[0], args[1])
				show(v, err)
				return
			}
			sent, err := repo.SendGlobalNotification(ctx, args[0], args[1])
			check("notify every user", err)
			globals.AppLogger.Info("notifications sent", "count", len(sent))
		},
	}
	cmdNotify.Flags().String("user", "", "recipient user id")

	var cmdDelete = &cobra.Command{
		Use:   "delete",
		Short: "Delete posts or notifications",
	}
	var cmdDeletePost = &cobra.Command{
		Use:   "post [post id]",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			check("delete post", repo.DeletePost(ctx, args[0]))
		},
	}
	var cmdDeleteNotification = &cobra.Command{
		Use:   "notification [user id] [notification id]",
		Short: "Delete a notification",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			check("delete notification", repo.DeleteNotification(ctx, args[0], args[1]))
		},
	}

	flagSet := config.GetFlagSet()
	var rootCmd = &cobra.Command{
		Use: "eternal-paradise-admin",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return open(flagSet)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			check("close store", store.Close())
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file or directory")
	rootCmd.PersistentFlags().AddFlagSet(flagSet)
	rootCmd.AddCommand(cmdStatus, cmdShow, cmdSet, cmdCreate, cmdNotify, cmdDelete)
	cmdShow.AddCommand(cmdShowUsers, cmdShowUser, cmdShowOrgs, cmdShowChannels, cmdShowPosts, cmdShowNotifications,
		cmdShowStats, cmdShowVisibility)
	cmdSet.AddCommand(cmdSetUser, cmdSetGM, cmdSetVisibility, cmdSetLicense, cmdSetStats)
	cmdCreate.AddCommand(cmdCreateNPC, cmdCreateOrg, cmdCreatePost)
	cmdDelete.AddCommand(cmdDeletePost, cmdDeleteNotification)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
