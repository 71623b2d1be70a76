package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haldana/sift/internal/cli"
	"github.com/haldana/sift/internal/model"
	"github.com/haldana/sift/internal/rules"
)

// ruleEdits captures the changes requested on the command line. Nil fields
// were not given and leave the rule untouched.
type ruleEdits struct {
	name           *string
	action         *string
	priority       *int
	stopOnMatch    *bool
	feeds          *string
	confidence     *float64
	notifyPriority *int
	categoryID     *int64
	tagIDs         *string

	clearConditions bool
	condition       *model.Condition
	chain           model.ChainOperator
}

// applyRuleEdits mutates rule in place. An appended condition joins its group
// at the end, chaining the previous condition in that group with the requested
// operator.
func applyRuleEdits(rule *model.Rule, edits ruleEdits) {
	if edits.name != nil {
		rule.Name = *edits.name
	}
	if edits.action != nil {
		rule.ActionType = model.ActionType(*edits.action)
	}
	if edits.priority != nil {
		rule.Priority = *edits.priority
	}
	if edits.stopOnMatch != nil {
		rule.StopOnMatch = *edits.stopOnMatch
	}
	if edits.feeds != nil {
		if *edits.feeds == "" {
			rule.Scope = model.ScopeAllFeeds
			rule.ScopeFeedIDs = ""
		} else {
			rule.Scope = model.ScopeSpecificFeeds
			rule.ScopeFeedIDs = *edits.feeds
		}
	}
	if edits.confidence != nil {
		rule.Confidence = *edits.confidence
	}
	if edits.notifyPriority != nil {
		rule.ActionPriority = *edits.notifyPriority
	}
	if edits.categoryID != nil {
		rule.ActionCategoryID = edits.categoryID
	}
	if edits.tagIDs != nil {
		rule.ActionTagIDs = *edits.tagIDs
	}

	if edits.clearConditions {
		rule.Conditions = nil
	}
	if edits.condition != nil {
		appendCondition(rule, *edits.condition, edits.chain)
	}
}

func appendCondition(rule *model.Rule, cond model.Condition, chain model.ChainOperator) {
	if chain == "" {
		chain = model.ChainAnd
	}
	cond.CombineWithNext = model.ChainAnd

	last := -1
	for i, existing := range rule.Conditions {
		if existing.GroupID == cond.GroupID {
			last = i
			if existing.Order >= cond.Order {
				cond.Order = existing.Order + 1
			}
		}
	}
	if last >= 0 {
		rule.Conditions[last].CombineWithNext = chain
	}
	rule.Conditions = append(rule.Conditions, cond)
}

func rulesEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a rule",
		Long: `Change a rule's settings or extend its conditions. Only the flags you
pass are applied; everything else keeps its current value. A condition given
with --field and --operator is appended to the group named by --group, joined
to that group's previous condition with --chain. Pass --clear-conditions to
replace the condition set instead of extending it.`,
		Args: cobra.ExactArgs(1),
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

			var edits ruleEdits
			flags := cmd.Flags()

			if flags.Changed("name") {
				v, _ := flags.GetString("name")
				edits.name = &v
			}
			if flags.Changed("action") {
				v, _ := flags.GetString("action")
				edits.action = &v
			}
			if flags.Changed("priority") {
				v, _ := flags.GetInt("priority")
				edits.priority = &v
			}
			if flags.Changed("stop-on-match") {
				v, _ := flags.GetBool("stop-on-match")
				edits.stopOnMatch = &v
			}
			if flags.Changed("feeds") {
				v, _ := flags.GetString("feeds")
				edits.feeds = &v
			}
			if flags.Changed("confidence") {
				v, _ := flags.GetFloat64("confidence")
				edits.confidence = &v
			}
			if flags.Changed("notify-priority") {
				v, _ := flags.GetInt("notify-priority")
				edits.notifyPriority = &v
			}

			if flags.Changed("category") {
				categoryName, _ := flags.GetString("category")
				category, err := db.GetCategoryByName(ctx, categoryName)
				if err != nil {
					return fmt.Errorf("category %q does not exist", categoryName)
				}
				edits.categoryID = &category.ID
			}

			if flags.Changed("tags") {
				tagNames, _ := flags.GetString("tags")
				var ids []string
				for _, tagName := range strings.Split(tagNames, ",") {
					tag, err := db.GetOrCreateTag(ctx, strings.TrimSpace(tagName))
					if err != nil {
						return fmt.Errorf("failed to resolve tag %q: %w", tagName, err)
					}
					ids = append(ids, fmt.Sprintf("%d", tag.ID))
				}
				csv := strings.Join(ids, ",")
				edits.tagIDs = &csv
			}

			edits.clearConditions, _ = flags.GetBool("clear-conditions")

			field, _ := flags.GetString("field")
			operator, _ := flags.GetString("operator")
			if field != "" && operator != "" {
				value, _ := flags.GetString("value")
				pattern, _ := flags.GetString("pattern")
				caseSensitive, _ := flags.GetBool("case-sensitive")
				negate, _ := flags.GetBool("negate")
				group, _ := flags.GetInt("group")
				chain, _ := flags.GetString("chain")

				edits.condition = &model.Condition{
					FieldTarget:   model.FieldTarget(field),
					Operator:      model.Operator(operator),
					Value:         value,
					RegexPattern:  pattern,
					CaseSensitive: caseSensitive,
					Negate:        negate,
					GroupID:       group,
				}
				edits.chain = model.ChainOperator(chain)
			}

			applyRuleEdits(rule, edits)

			if result := rules.ValidateRuleConditions(rule); !result.Valid {
				for _, msg := range result.Errors {
					fmt.Println(cli.ErrorStyle.Render("  " + msg))
				}
				return fmt.Errorf("rule conditions are invalid")
			}

			if err := db.UpdateRule(ctx, rule); err != nil {
				return fmt.Errorf("failed to update rule: %w", err)
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Updated rule %d: %s", rule.ID, rule.Name)))
			return nil
		},
	}

	cmd.Flags().String("name", "", "Rule name")
	cmd.Flags().String("action", "", "Action: mark_as_read, mark_as_starred, move_to_category, tag, notify")
	cmd.Flags().Int("priority", 0, "Evaluation priority (lower evaluates first)")
	cmd.Flags().Bool("stop-on-match", false, "Stop evaluating lower-priority rules on match")
	cmd.Flags().String("feeds", "", "Comma-separated feed IDs to scope the rule to (empty for all feeds)")
	cmd.Flags().String("category", "", "Target category name for move_to_category")
	cmd.Flags().String("tags", "", "Comma-separated tag names for the tag action")
	cmd.Flags().Float64("confidence", 1.0, "Confidence recorded with rule-applied tags")
	cmd.Flags().Int("notify-priority", 0, "Notification priority for the notify action")
	cmd.Flags().Bool("clear-conditions", false, "Drop the existing conditions before applying --field")
	cmd.Flags().String("field", "", "Condition field: title, content, summary, author, published_date, link, category, tag")
	cmd.Flags().String("operator", "", "Condition operator: contains, not_contains, equals, not_equals, greater_than, less_than, regex, is_empty, is_not_empty")
	cmd.Flags().String("value", "", "Condition value")
	cmd.Flags().String("pattern", "", "Regex pattern for the regex operator")
	cmd.Flags().Bool("case-sensitive", false, "Case-sensitive comparison")
	cmd.Flags().Bool("negate", false, "Invert the condition result")
	cmd.Flags().Int("group", 0, "Condition group the new condition joins")
	cmd.Flags().String("chain", "and", "Chain operator joining the new condition to its group (and, or)")

	return cmd
}
