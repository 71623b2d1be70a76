package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haldana/sift/internal/cli"
	"github.com/haldana/sift/internal/model"
	"github.com/haldana/sift/internal/rules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rules",
		Aliases: []string{"rule"},
		Short:   "Manage article filtering rules",
		Long: `Manage the rules that are evaluated against every fetched article:
conditions on title, content, author, date, category or tags, combined with
AND/OR chains, triggering actions like mark-as-read, tagging or notifications.`,
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesShowCmd())
	cmd.AddCommand(rulesCreateCmd())
	cmd.AddCommand(rulesEditCmd())
	cmd.AddCommand(rulesDeleteCmd())
	cmd.AddCommand(rulesEnableCmd(true))
	cmd.AddCommand(rulesEnableCmd(false))
	cmd.AddCommand(rulesTestCmd())
	cmd.AddCommand(rulesValidateCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			ruleSet, err := db.GetRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to get rules: %w", err)
			}

			if len(ruleSet) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No rules defined"))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tPRIORITY\tACTION\tSCOPE\tSTATE\tMATCHES\tLAST MATCH")

			for _, rule := range ruleSet {
				lastMatch := "never"
				if rule.LastMatchDate != nil {
					lastMatch = rule.LastMatchDate.Format("2006-01-02 15:04")
				}
				scope := string(rule.Scope)
				if rule.Scope == model.ScopeSpecificFeeds {
					scope = "feeds " + rule.ScopeFeedIDs
				}

				_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\t%d\t%s\n",
					rule.ID,
					truncateString(rule.Name, 30),
					rule.Priority,
					rule.ActionType,
					scope,
					cli.Enabled(rule.IsEnabled),
					rule.MatchCount,
					lastMatch)
			}

			return w.Flush()
		},
	}
}

func rulesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show rule details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			rule, err := db.GetRule(ctx, id)
			if err != nil {
				return fmt.Errorf("rule %d not found", id)
			}

			fmt.Println(cli.TitleStyle.Render(rule.Name))
			fmt.Printf("  ID:            %d\n", rule.ID)
			fmt.Printf("  Action:        %s\n", rule.ActionType)
			if rule.ActionCategoryID != nil {
				target := fmt.Sprintf("category %d", *rule.ActionCategoryID)
				if category, err := db.GetCategoryByID(ctx, *rule.ActionCategoryID); err == nil {
					target = category.Name
				}
				fmt.Printf("  Target:        %s\n", target)
			}
			fmt.Printf("  Priority:      %d\n", rule.Priority)
			fmt.Printf("  Scope:         %s %s\n", rule.Scope, rule.ScopeFeedIDs)
			fmt.Printf("  State:         %s\n", cli.Enabled(rule.IsEnabled))
			fmt.Printf("  Stop on match: %v\n", rule.StopOnMatch)
			fmt.Printf("  Matches:       %d\n", rule.MatchCount)
			if rule.LastMatchDate != nil {
				fmt.Printf("  Last match:    %s\n", rule.LastMatchDate.Format("2006-01-02 15:04:05"))
			}

			fmt.Println("  Conditions:")
			for _, group := range rule.ConditionGroups() {
				for i, cond := range group {
					chain := ""
					if i < len(group)-1 {
						chain = " " + strings.ToUpper(string(cond.CombineWithNext))
					}
					negate := ""
					if cond.Negate {
						negate = "NOT "
					}
					value := cond.Value
					if cond.Operator == model.OpRegex {
						value = "/" + cond.RegexPattern + "/"
					}
					fmt.Printf("    [group %d] %s%s %s %q%s\n",
						cond.GroupID, negate, cond.FieldTarget, cond.Operator, value, chain)
				}
			}
			return nil
		},
	}
}

func rulesCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a rule",
		Long: `Create a rule with a single condition. Edit the rule afterwards to add
further conditions or groups.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			name, _ := cmd.Flags().GetString("name")
			action, _ := cmd.Flags().GetString("action")
			if name == "" || action == "" {
				return fmt.Errorf("name and action are required")
			}

			priority, _ := cmd.Flags().GetInt("priority")
			stopOnMatch, _ := cmd.Flags().GetBool("stop-on-match")
			feeds, _ := cmd.Flags().GetString("feeds")
			confidence, _ := cmd.Flags().GetFloat64("confidence")
			notifyPriority, _ := cmd.Flags().GetInt("notify-priority")

			rule := model.Rule{
				Name:           name,
				ActionType:     model.ActionType(action),
				Priority:       priority,
				ActionPriority: notifyPriority,
				Confidence:     confidence,
				IsEnabled:      true,
				StopOnMatch:    stopOnMatch,
				Scope:          model.ScopeAllFeeds,
			}
			if feeds != "" {
				rule.Scope = model.ScopeSpecificFeeds
				rule.ScopeFeedIDs = feeds
			}

			if categoryName, _ := cmd.Flags().GetString("category"); categoryName != "" {
				category, err := db.GetCategoryByName(ctx, categoryName)
				if err != nil {
					return fmt.Errorf("category %q does not exist", categoryName)
				}
				rule.ActionCategoryID = &category.ID
			}

			if tagNames, _ := cmd.Flags().GetString("tags"); tagNames != "" {
				var ids []string
				for _, tagName := range strings.Split(tagNames, ",") {
					tag, err := db.GetOrCreateTag(ctx, strings.TrimSpace(tagName))
					if err != nil {
						return fmt.Errorf("failed to resolve tag %q: %w", tagName, err)
					}
					ids = append(ids, fmt.Sprintf("%d", tag.ID))
				}
				rule.ActionTagIDs = strings.Join(ids, ",")
			}

			field, _ := cmd.Flags().GetString("field")
			operator, _ := cmd.Flags().GetString("operator")
			if field != "" && operator != "" {
				value, _ := cmd.Flags().GetString("value")
				pattern, _ := cmd.Flags().GetString("pattern")
				caseSensitive, _ := cmd.Flags().GetBool("case-sensitive")
				negate, _ := cmd.Flags().GetBool("negate")

				rule.Conditions = []model.Condition{{
					FieldTarget:     model.FieldTarget(field),
					Operator:        model.Operator(operator),
					Value:           value,
					RegexPattern:    pattern,
					CaseSensitive:   caseSensitive,
					Negate:          negate,
					CombineWithNext: model.ChainAnd,
				}}
			}

			if result := rules.ValidateRuleConditions(&rule); !result.Valid {
				for _, msg := range result.Errors {
					fmt.Println(cli.ErrorStyle.Render("  " + msg))
				}
				return fmt.Errorf("rule conditions are invalid")
			}

			if err := db.CreateRule(ctx, &rule); err != nil {
				return fmt.Errorf("failed to create rule: %w", err)
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Created rule %d: %s", rule.ID, rule.Name)))
			return nil
		},
	}

	cmd.Flags().String("name", "", "Rule name (required)")
	cmd.Flags().String("action", "", "Action: mark_as_read, mark_as_starred, move_to_category, tag, notify (required)")
	cmd.Flags().Int("priority", 0, "Evaluation priority (lower evaluates first)")
	cmd.Flags().Bool("stop-on-match", false, "Stop evaluating lower-priority rules on match")
	cmd.Flags().String("feeds", "", "Comma-separated feed IDs to scope the rule to")
	cmd.Flags().String("category", "", "Target category name for move_to_category")
	cmd.Flags().String("tags", "", "Comma-separated tag names for the tag action")
	cmd.Flags().Float64("confidence", 1.0, "Confidence recorded with rule-applied tags")
	cmd.Flags().Int("notify-priority", 0, "Notification priority for the notify action")
	cmd.Flags().String("field", "", "Condition field: title, content, summary, author, published_date, link, category, tag")
	cmd.Flags().String("operator", "", "Condition operator: contains, not_contains, equals, not_equals, greater_than, less_than, regex, is_empty, is_not_empty")
	cmd.Flags().String("value", "", "Condition value")
	cmd.Flags().String("pattern", "", "Regex pattern for the regex operator")
	cmd.Flags().Bool("case-sensitive", false, "Case-sensitive comparison")
	cmd.Flags().Bool("negate", false, "Invert the condition result")

	return cmd
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := db.DeleteRule(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to delete rule: %w", err)
			}
			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Deleted rule %d", id)))
			return nil
		},
	}
}

func rulesEnableCmd(enable bool) *cobra.Command {
	use, short := "enable <id>", "Enable a rule"
	if !enable {
		use, short = "disable <id>", "Disable a rule"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := db.SetRuleEnabled(cmd.Context(), id, enable); err != nil {
				return fmt.Errorf("failed to update rule: %w", err)
			}
			fmt.Printf("Rule %d is now %s\n", id, cli.Enabled(enable))
			return nil
		},
	}
}

func rulesTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <rule-id> <article-id>",
		Short: "Dry-run a rule against an article",
		Long: `Evaluate a rule against a stored article without executing its action.
Match statistics are not touched by a dry run.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ruleID, err := parseID(args[0])
			if err != nil {
				return err
			}
			articleID, err := parseID(args[1])
			if err != nil {
				return err
			}

			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			rule, err := db.GetRule(ctx, ruleID)
			if err != nil {
				return fmt.Errorf("rule %d not found", ruleID)
			}
			article, err := db.GetArticleByID(ctx, articleID)
			if err != nil {
				return fmt.Errorf("article %d not found", articleID)
			}

			matcher := rules.NewMatcher([]model.Rule{*rule})
			matched := matcher.Match(ctx, article)

			fmt.Printf("%s  rule %q vs article %q\n",
				cli.MatchBadge(len(matched) > 0), rule.Name, truncateString(article.Title, 50))
			return nil
		},
	}
}

func rulesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <id>",
		Short: "Validate a rule's conditions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			rule, err := db.GetRule(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("rule %d not found", id)
			}

			result := rules.ValidateRuleConditions(rule)
			if result.Valid {
				fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Rule %q is valid", rule.Name)))
				return nil
			}

			fmt.Println(cli.ErrorStyle.Render(fmt.Sprintf("Rule %q is invalid:", rule.Name)))
			for _, msg := range result.Errors {
				fmt.Println(cli.ErrorStyle.Render("  " + msg))
			}
			return fmt.Errorf("validation failed")
		},
	}
}
