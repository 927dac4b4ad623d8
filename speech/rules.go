package speech

import "sync"

// defaultPatternRules are replaced by regex match, in order, first match only.
var defaultPatternRules = [][2]string{
	{`^[\? ]+$`, "huh?"},
	{`^[\! ]+$`, "woah"},
	{`^\.\.\.$`, "umm"},
	{`^LL$`, "Skill issue."},
	{`(?:^|\W)>:D(?:$|\W)`, "evil face"},
	{`(?:^|\W)>[:=]\((?:$|\W)`, "angry face"},
	{`(?:^|\W)[:=]\((?:$|\W)`, "sad face"},
	{`(?:^|\W)(\d+)/10(?:$|\W)`, "${1} out of 10"},
	{`(?:^|\W)\^_\^(?:$|\W)`, "oo woo"},
	{`(?:^|\W):3+c?`, "oo woo"},
	{`bruh+`, "bruh"},
	{`XD+`, "XD"},
	{`u(?:wu)+`, "uwu"},
	{`^\^+$`, "Yeah, agreed!"},
	{`^</3$`, ""},
	{`kae`, "Kay"},
}

// defaultWordRules are replaced whole-word, in order, first match only.
var defaultWordRules = [][2]string{
	{`twat`, "twaaat"},
	{`cmon`, "come on"},
	{`epicer`, "epic er"},
	{`yk`, "you know"},
	{`omg`, "oh my god"},
	{`btw`, "by the way"},
	{`b\)`, "cool face"},
	{`ppl`, "people"},
	{`ic`, "I see"},
	{`;\-;`, "crying"},
	{`im`, "I'm"},
	{`em`, "them"},
	{`theres`, "there's"},
	{`oml`, "oh my lord"},
	{`ur`, "your"},
	{`idk`, "I don't know"},
	{`idc`, "I don't care"},
	{`ngl`, "not gonna lie"},
	{`imo`, "in my opinion"},
	{`imho`, "in my honest opinion"},
	{`ty`, "thank you"},
	{`wdym`, "what do you mean"},
	{`tho`, "though"},
	{`welp`, "whelp"},
	{`wth`, "what the hell"},
	{`wtf`, "what the frick"},
	{`og`, "OG"},
	{`yt`, "YouTube"},
	{`jk`, "JK"},
	{`afk`, "AFK"},
	{`smh`, "shaking my head"},
	{`gtg`, "gotta go"},
	{`g2g`, "gotta go"},
	{`ik`, "I know"},
	{`ew`, "eww"},
	{`uwu`, "oo woo"},
	{`:3`, "oo woo"},
	{`:D`, "yay!"},
	{`<3`, "heart"},
	{`fr`, "for real"},
	{`frfr`, "for real for real"},
	{`ikr`, "I know, right?"},
	{`yw`, "you're welcome"},
	{`dont`, "don't"},
	{`rn`, "right now"},
	{`ig`, "I guess"},
	{`alr`, "alright"},
	{`nvm`, "nevermind"},
	{`sus`, "suss"},
	{`gn`, "goodnight"},
	{`vtuber`, "vee toober"},
	{`envtuber`, "E N vee toober"},
	{`pls`, "please"},
	{`tysm`, "thank you so much"},
	{`ily`, "I love you"},
	{`thx`, "thanks"},
	{`abt`, "about"},
	{`plz`, "please"},
	{`rlly`, "really"},
	{`wont`, "won't"},
	{`data`, "dayta"},
	{`grr`, "gyrrr"},
	{`tf`, "the frick"},
	{`tbh`, "to be honest"},
	{`brb`, "be right back"},
	{`hru`, "how are you"},
	{`irl`, "IRL"},
	{`bf`, "boy-frog"},
	{`wyd`, "what you doing"},
	{`bbg`, "babygirl"},
	{`stfu`, "shut the heck up"},
	{`omfg`, "oh my hecking god"},
	{`wingman`, "wing-man"},
	{`havent`, "haven't"},
	{`hmpf`, "hmpf"},
	{`kys`, "reconsider what you are doing"},
	{`\/th`, "slash threat"},
	{`nfts`, "NFTs"},
	{`nft`, "NFT"},
	{`ai`, "AI"},
	{`rq`, "real quick"},
	{`m8`, "mate"},
	{`wb`, "wub"},
	{`tn`, "tonight"},
	{`henlowo`, "hen-low-woah"},
	{`hellowo`, "hell-oh-woah"},
	{`nyah?`, "nia"},
	{`fml`, "frick my life"},
	{`tos`, "toss"},
	{`ttyl`, "talk to you later"},
	{`it`, "it"},
	{`tts`, "text to speech"},
	{`bo'om`, "boddum"},
	{`lol`, "teehee"},
	{`lmao`, "teehee"},
	{`lmafo`, "teehee"},
	{`lmfao`, "teehee"},
	{`google`, "gog-lay"},
	{`smth`, "something"},
	{`ily2`, "i love you too"},
	{`wha`, "what"},
}

var defaultRules = sync.OnceValue(func() *RuleTable {
	t, err := NewRuleTable(defaultPatternRules, defaultWordRules)
	if err != nil {
		panic(err) // built-in tables must always compile
	}
	return t
})

// DefaultRules returns the built-in substitution tables, compiled once.
func DefaultRules() *RuleTable { return defaultRules() }
