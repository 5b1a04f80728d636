package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/gagliardetto/solana-go"

	dareme_protocol "dareme-cli/solana"
	"dareme-cli/storage"
)

const (
	actionAccept  = "Accept Dare"
	actionRefuse  = "Refuse Dare"
	actionSubmit  = "Submit Proof"
	actionApprove = "Approve Proof"
	actionReject  = "Reject Proof"
	actionCancel  = "Cancel Dare"
	actionExpire  = "Expire Dare"
)

// runInteractive is the main menu loop for a selected profile.
func runInteractive(ctx context.Context, signer solana.PrivateKey, profileName string) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("\nWelcome, %s!", profileName)))
	fmt.Println(promptStyle.Render("   Address: " + signer.PublicKey().String()))

	client, err := newClient(signer)
	if err != nil {
		fmt.Println(warningStyle.Render(err.Error()))
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Println()
		choice := ""
		prompt := &survey.Select{
			Message: promptStyle.Render("What would you like to do?"),
			Options: []string{
				"Create Dare",
				"My Dares",
				"Dare Actions",
				"View Stats",
				"Expire Overdue Dares",
				"Wallet Management",
				"Switch Profile",
			},
		}
		if err := survey.AskOne(prompt, &choice); err != nil {
			return
		}

		switch choice {
		case "Create Dare":
			handleCreateDare(ctx, client)
		case "My Dares":
			handleMyDares(ctx, client, signer.PublicKey())
		case "Dare Actions":
			handleDareActions(ctx, client, signer.PublicKey())
		case "View Stats":
			handleViewStats(ctx, client, signer.PublicKey())
		case "Expire Overdue Dares":
			handleExpireOverdue(ctx, client)
		case "Wallet Management":
			handleWalletManagement(ctx, client, signer)
		case "Switch Profile":
			return
		}
	}
}

func handleCreateProfile(db *storage.WalletStorage) {
	name := ""
	prompt := &survey.Input{Message: "Enter a name for the new profile:"}
	if err := survey.AskOne(prompt, &name, survey.WithValidator(survey.Required)); err != nil {
		return
	}
	if err := createProfile(db, name); err != nil {
		fmt.Println(warningStyle.Render(err.Error()))
	}
}

func handleImportProfile(db *storage.WalletStorage) {
	answers := struct {
		Name string
		Path string
	}{}
	defaultPath, _ := dareme_protocol.DefaultWalletPath()
	questions := []*survey.Question{
		{Name: "name", Prompt: &survey.Input{Message: "Profile name:"}, Validate: survey.Required},
		{Name: "path", Prompt: &survey.Input{Message: "Path to keypair file:", Default: defaultPath}, Validate: survey.Required},
	}
	if err := survey.Ask(questions, &answers); err != nil {
		return
	}
	if err := importProfile(db, answers.Name, answers.Path); err != nil {
		fmt.Println(warningStyle.Render(err.Error()))
	}
}

func handleCreateDare(ctx context.Context, client *dareme_protocol.Client) {
	answers := struct {
		Type        string
		Target      string
		Amount      string
		Deadline    string
		Description string
	}{}
	questions := []*survey.Question{
		{Name: "type", Prompt: &survey.Select{Message: "Dare type:", Options: []string{"direct", "bounty"}}},
		{Name: "target", Prompt: &survey.Input{Message: "Daree wallet (leave empty for an open dare):"}},
		{Name: "amount", Prompt: &survey.Input{Message: "Stake in SOL:"}, Validate: survey.Required},
		{Name: "deadline", Prompt: &survey.Input{Message: "Deadline (e.g. 48h):", Default: "24h"}},
		{Name: "description", Prompt: &survey.Input{Message: "Describe the dare:"}, Validate: survey.Required},
	}
	if err := survey.Ask(questions, &answers); err != nil {
		return
	}

	createFlags.dareType = answers.Type
	createFlags.target = answers.Target
	createFlags.amount = answers.Amount
	createFlags.deadline = answers.Deadline
	createFlags.description = answers.Description
	createFlags.winner = "challenger"
	createFlags.id = 0
	args, err := createArgs(time.Now())
	if err != nil {
		fmt.Println(warningStyle.Render(err.Error()))
		return
	}

	confirm := false
	confirmPrompt := &survey.Confirm{
		Message: fmt.Sprintf("Escrow %s for this dare?", formatSol(args.Amount)),
		Default: true,
	}
	if err := survey.AskOne(confirmPrompt, &confirm); err != nil || !confirm {
		fmt.Println(promptStyle.Render("\nCreate cancelled."))
		return
	}

	fmt.Println(promptStyle.Render("\nSending transaction... Please wait."))
	sig, pda, err := client.CreateDare(ctx, args)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Failed to create dare: %v", err)))
		return
	}
	printSignature("Dare Created!", sig)
	fmt.Printf("   Dare Address: %s\n", pda)
}

func handleMyDares(ctx context.Context, client *dareme_protocol.Client, me solana.PublicKey) {
	fmt.Println(promptStyle.Render("\nFetching your dares... Please wait."))
	created, err := client.FetchDaresByChallenger(ctx, me)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Failed to fetch dares: %v", err)))
		return
	}
	dared, err := client.FetchDaresByDaree(ctx, me)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Failed to fetch dares: %v", err)))
		return
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("\n🎯 Created by you (%d)", len(created))))
	for _, d := range created {
		printDareLine(d)
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("\n🔥 Dared to you (%d)", len(dared))))
	for _, d := range dared {
		printDareLine(d)
	}
}

// availableActions lists what me may do to d at now, in menu order.
func availableActions(d *dareme_protocol.Dare, me solana.PublicKey, now int64) []string {
	var actions []string
	isChallenger := d.Challenger.Equals(me)
	isDaree := d.IsDaree(me)
	open := now < d.Deadline

	switch d.Status {
	case dareme_protocol.DareStatus_Created:
		switch {
		case isChallenger:
			actions = append(actions, actionCancel)
		case d.DareType == dareme_protocol.DareType_PublicBounty:
			if open {
				actions = append(actions, actionSubmit)
			}
		case !d.HasDaree() || isDaree:
			if open {
				actions = append(actions, actionAccept)
			}
			if isDaree {
				actions = append(actions, actionRefuse)
			}
		}
	case dareme_protocol.DareStatus_Active, dareme_protocol.DareStatus_Rejected:
		if isDaree && open {
			actions = append(actions, actionSubmit)
		}
	case dareme_protocol.DareStatus_ProofSubmitted:
		if isChallenger {
			actions = append(actions, actionApprove, actionReject)
		}
	}
	if dareme_protocol.Expirable(d, now) {
		actions = append(actions, actionExpire)
	}
	return actions
}

func handleDareActions(ctx context.Context, client *dareme_protocol.Client, me solana.PublicKey) {
	address := ""
	prompt := &survey.Input{Message: "Enter the dare address:"}
	if err := survey.AskOne(prompt, &address, survey.WithValidator(survey.Required)); err != nil {
		return
	}
	dare, err := parsePublicKey("dare address", address)
	if err != nil {
		fmt.Println(warningStyle.Render(err.Error()))
		return
	}
	d, err := client.FetchDare(ctx, dare)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Failed to fetch dare: %v", err)))
		return
	}
	printDare(dare, d)

	actions := availableActions(d, me, time.Now().Unix())
	if len(actions) == 0 {
		fmt.Println(promptStyle.Render("\nNothing you can do with this dare right now."))
		return
	}
	choice := ""
	menu := &survey.Select{
		Message: promptStyle.Render("Choose an action:"),
		Options: append(actions, "Back to Main Menu"),
	}
	if err := survey.AskOne(menu, &choice); err != nil {
		return
	}

	var sig *solana.Signature
	switch choice {
	case actionAccept:
		sig, err = client.AcceptDare(ctx, dare)
	case actionRefuse:
		sig, err = client.RefuseDare(ctx, dare)
	case actionSubmit:
		proof := ""
		proofPrompt := &survey.Input{Message: "Proof reference (URL):"}
		if err := survey.AskOne(proofPrompt, &proof, survey.WithValidator(survey.Required)); err != nil {
			return
		}
		sig, err = client.SubmitProof(ctx, dare, dareme_protocol.HashProof(proof))
	case actionApprove:
		sig, err = client.ApproveDare(ctx, dare)
	case actionReject:
		sig, err = client.RejectDare(ctx, dare)
	case actionCancel:
		sig, err = client.CancelDare(ctx, dare)
	case actionExpire:
		sig, err = client.ExpireDare(ctx, dare)
	default:
		return
	}
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ %s failed: %v", choice, err)))
		return
	}
	printSignature(choice+" done!", sig)
}

func handleViewStats(ctx context.Context, client *dareme_protocol.Client, me solana.PublicKey) {
	stats, err := client.FetchUserStats(ctx, me)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Failed to fetch stats: %v", err)))
		return
	}
	printStats(stats)
}

func handleExpireOverdue(ctx context.Context, client *dareme_protocol.Client) {
	fmt.Println(promptStyle.Render("\nLooking for overdue dares... Please wait."))
	sent, err := client.ExpireAll(ctx)
	for dare, sig := range sent {
		fmt.Println(infoStyle.Render(fmt.Sprintf("   %s expired: %s", dare, sig)))
	}
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ %v", err)))
		return
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("\n✅ %d dare(s) expired.", len(sent))))
}

func handleWalletManagement(ctx context.Context, client *dareme_protocol.Client, signer solana.PrivateKey) {
	fmt.Println()
	menu := &survey.Select{
		Message: promptStyle.Render("Wallet Management:"),
		Options: []string{"View Address", "View Balance", "Send SOL", "Export Wallet (UNSAFE)", "Back to Main Menu"},
	}
	var choice string
	if err := survey.AskOne(menu, &choice); err != nil {
		return
	}

	switch choice {
	case "View Address":
		viewAddress(signer)
	case "View Balance":
		viewBalance(ctx, client, signer)
	case "Send SOL":
		sendSol(ctx, client)
	case "Export Wallet (UNSAFE)":
		exportWallet(signer)
	}
}

func viewAddress(signer solana.PrivateKey) {
	fmt.Println(titleStyle.Render("\n📬 Your Wallet Address:"))
	fmt.Println("   " + signer.PublicKey().String())
}

func viewBalance(ctx context.Context, client *dareme_protocol.Client, signer solana.PrivateKey) {
	fmt.Println(promptStyle.Render("\nChecking balance... Please wait."))
	balance, err := client.GetBalance(ctx, signer.PublicKey())
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Failed to get balance: %v", err)))
		return
	}
	fmt.Println(titleStyle.Render("\n💰 Your Wallet Balance:"))
	fmt.Printf("   %s\n", formatSol(balance))
}

func exportWallet(signer solana.PrivateKey) {
	fmt.Println(warningStyle.Render("\n⚠️ WARNING: EXPORTING YOUR PRIVATE KEY ⚠️"))
	fmt.Println(promptStyle.Render("Sharing your private key can result in the permanent loss of your funds."))
	confirm := false
	prompt := &survey.Confirm{Message: "Are you absolutely sure?", Default: false}
	if err := survey.AskOne(prompt, &confirm); err != nil || !confirm {
		fmt.Println(promptStyle.Render("\nExport cancelled."))
		return
	}
	fmt.Println(titleStyle.Render("\n🔐 Your Private Key (Base58):"))
	fmt.Println(signer.String())
}

func sendSol(ctx context.Context, client *dareme_protocol.Client) {
	fmt.Println(promptStyle.Render("\n💸 Send SOL"))
	recipientStr := ""
	addrPrompt := &survey.Input{Message: "Enter recipient address:"}
	if err := survey.AskOne(addrPrompt, &recipientStr, survey.WithValidator(survey.Required)); err != nil {
		return
	}
	recipient, err := parsePublicKey("recipient address", recipientStr)
	if err != nil {
		fmt.Println(warningStyle.Render(err.Error()))
		return
	}
	amountStr := ""
	amountPrompt := &survey.Input{Message: "Enter amount of SOL to send:"}
	if err := survey.AskOne(amountPrompt, &amountStr, survey.WithValidator(survey.Required)); err != nil {
		return
	}
	lamports, err := parseSol(amountStr)
	if err != nil {
		fmt.Println(warningStyle.Render(err.Error()))
		return
	}
	confirm := false
	confirmPrompt := &survey.Confirm{
		Message: fmt.Sprintf("You are about to send %s to %s. Continue?", formatSol(lamports), recipient),
		Default: false,
	}
	if err := survey.AskOne(confirmPrompt, &confirm); err != nil || !confirm {
		fmt.Println(promptStyle.Render("\nSend cancelled."))
		return
	}
	fmt.Println(promptStyle.Render("\nSending transaction... Please wait."))
	sig, err := client.SendSol(ctx, recipient, lamports)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Failed to send SOL: %v", err)))
		return
	}
	printSignature("Transaction Sent Successfully!", sig)
}
