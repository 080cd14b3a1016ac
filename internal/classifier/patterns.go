package classifier

import "regexp"

// All phrase patterns run against normalized lower-case text: NFKC, ASCII
// quotes, single spaces.

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, expr := range exprs {
		out[i] = regexp.MustCompile(expr)
	}
	return out
}

// firstMatch returns the first matched phrase across patterns
func firstMatch(text string, patterns []*regexp.Regexp) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, p := range patterns {
		if m := p.FindString(text); m != "" {
			return m, true
		}
	}
	return "", false
}

// Offer language must be directed at the recipient.
var offerPatterns = compile(
	`\b(pleased|happy|excited|delighted|thrilled)\s+to\s+(extend|offer|present)\s+(to\s+)?you\b`,
	`\b(like|love|want)\s+to\s+offer\s+you\b`,
	`\boffer\s+you\s+the\s+(position|role|job)\b`,
	`\bextend(ing)?\s+(an?\s+)?(formal\s+|official\s+|verbal\s+|written\s+)?offer(\s+of\s+employment)?\s+to\s+you\b`,
	`\b(extend(ing)?|present(ing)?)\s+you\s+(an?\s+|with\s+an?\s+)?(formal\s+|official\s+)?offer\b`,
	`\byour\s+offer\s+letter\s+(is|has\s+been)\s+(attached|ready|prepared|sent)\b`,
	`\b(attached|enclosed)\b.{0,80}\byour\s+offer\s+letter\b`,
	`\b(review|sign)\s+your\s+offer\s+letter\b`,
)

// negationPattern catches "will not be extending an offer to you" and friends
var negationPattern = regexp.MustCompile(`\b(not|unable|no\s+longer|won't|cannot|can't)\b`)

const negationWindow = 40

var interviewInvitePatterns = compile(
	`\binvite\s+you\s+(to|for)\s+(an?\s+|the\s+|your\s+)?([\w-]+\s+){0,3}(interview|screen|screening)\b`,
	`\byou\s+(have\s+been|are|were|'ve\s+been)\s+(selected|chosen|invited|shortlisted)\s+(for|to)\s+(an?\s+|the\s+)?(next\s+round|([\w-]+\s+){0,2}interview|screen|assessment|evaluation|coding\s+challenge|hirevue)\b`,
	`\binvited\s+to\s+(complete|take)\s+(an?\s+|the\s+|your\s+)?(online\s+|virtual\s+|video\s+|technical\s+|digital\s+)?(assessment|evaluation|screen|interview|hirevue)\b`,
	`\byour\s+interview\s+(is|has\s+been)\s+(scheduled|confirmed|set|booked)\b`,
	`\b(like|love|want)\s+to\s+schedule\s+(an?\s+)?([\w-]+\s+)?interview\s+with\s+you\b`,
	`\bschedule\s+your\s+([\w-]+\s+)?(interview|screen)\b`,
	`\b(moved|advanced?|advancing|moving)\s+you\s+(forward\s+)?to\s+(the|an?)\s+(next\s+)?([\w-]+\s+)?(interview|screen|round)\b`,
	`\b(complete|take)\s+(your|the|a)\s+hirevue\b`,
	`\blike\s+you\s+to\s+(complete|take)\s+(an?\s+|the\s+)?([\w-]+\s+)?(assessment|evaluation|hirevue)\b`,
	`\bnext\s+step.{0,40}\b(complete|take)\s+(an?\s+|the\s+)?([\w-]+\s+)?(assessment|evaluation|hirevue|coding\s+challenge|interview)\b`,
	`\blike\s+you\s+to\s+participate\s+in\s+(an?\s+)?(digital\s+|video\s+)?(interview|screen|assessment)\b`,
	`\bpowered\s+by\s+hire\s*vue\b`,
	`\bschedule\s+a\s+(quick\s+|short\s+|brief\s+)?(call|phone\s+call|video\s+call)\b`,
	`\b(like|love)\s+to\s+set\s+up\s+a\s+time\s+to\s+(talk|chat|speak|connect)\b`,
)

// Subject-line keywords for contextual interview detection
var interviewSubjectKeywords = compile(
	`\binterview(s|ing)?\b`,
	`\bnext\s+steps?\b`,
	`\b(phone|recruiter)\s+screen`,
	`\bcoding\s+(challenge|assessment)\b`,
	`\btake-?\s?home\s+(assignment|assessment|project|test)\b`,
	`\b(hackerrank|codility|codesignal|hirevue|pymetrics|karat|hireflix)\b`,
	`\bspark\s*hire\b`,
	`\bonline\s+assessment\b`,
	`\b(oa|assessment)\s+(invitation|invite)\b`,
	`\bvirtual\s+(assessment|evaluation)\b`,
	`\bskills?\s+(assessment|evaluation|test)\b`,
)

// Body action signals: scheduling verbs, tool links, date and time references
var interviewActionSignals = compile(
	`\bplease\s+(confirm|select|choose|pick|let\s+us\s+know|reply\s+with|share)\b`,
	`\b(click|use)\s+(on\s+)?(the\s+)?(link|button|calendar)\b`,
	`\b(calendly\.com|goodtime\.io|zoom\.us|meet\.google\.com|teams\.microsoft\.com)\b`,
	`\bschedule\.\w+`,
	`\b(book|pick)\s+(a|your)\s+(time|slot)\b`,
	`\byour\s+availability\b`,
	`\b(what|when)\s+(is|are)\s+your\s+(availability|available)\b`,
	`\bplease\s+complete\s+(the|this|your)\b`,
	`\b(access|start|begin|launch)\s+(your|the)\s+(assessment|evaluation|test|challenge|interview)\b`,
	`\b(assessment|test|challenge|hirevue|interview)\s+(link|url|portal)\b`,
	`\bdeadline\s+to\s+complete\b`,
	`\b(schedule|reschedule|scheduled|book|booked)\b`,
	`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`,
	`\b(today|tomorrow|tonight|next\s+week|this\s+week|last\s+week)\b`,
	`\b\d{1,2}(:\d{2})?\s?(am|pm)\b`,
	`\b(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(st|nd|rd|th)?\b`,
	`\b\d{1,2}/\d{1,2}(/\d{2,4})?\b`,
	`\b\d+\s+(hours?|days?|business\s+days)\b`,
)

var rejectionPatterns = compile(
	`\b(decided|chosen|elected)\s+to\s+(move|proceed|go)\s+forward\s+with\s+(other|another|a\s+different)\b`,
	`\b(will|shall)\s+not\s+be\s+(moving|going|proceeding)\s+forward\b`,
	`\bwon't\s+be\s+(moving|going|proceeding)\s+forward\b`,
	`\bafter\s+careful\s+(consideration|review)\b.{0,200}\bnot\s+(to\s+)?(moving|proceeding|move|proceed|advance|advancing)\b`,
	`\bunfortunately\b.{0,200}\bnot\s+(be\s+)?(moving|proceeding|advancing)\s+forward\b`,
	`\bwe\s+regret\s+to\s+inform\s+you\b`,
	`\b(we\s+are|we're)\s+unable\s+to\s+offer\s+you\b`,
	`\byour\s+application\b.{0,100}\bnot\s+been\s+(selected|successful)\b`,
	`\b(you|your\s+(application|candidacy|profile))\s+((have|has)\s+not\s+been|(were|was|are|is)\s+not|will\s+not\s+be)\s+selected\b`,
	`\b(have|has|did)\s+not\s+select(ed)?\s+(you|your)\b`,
	`\bnot\s+(be\s+)?moving\s+forward\s+with\s+your\b`,
	`\bdecided\s+not\s+to\s+(move|proceed)\s+forward\b`,
	`\bpursue\s+other\s+(applicants|candidates)\b`,
	`\b(position|role)\s+has\s+(now\s+)?been\s+filled\b`,
	`\bwe\s+have\s+filled\s+(the|this)\s+(position|role)\b`,
	`\bnot\s+the\s+right\s+fit\b`,
	`\byour\s+candidacy\b.{0,100}\bwill\s+not\b`,
	`\bno\s+longer\s+(considering|pursuing)\b`,
	`\bunable\s+to\s+move\s+forward\b`,
	`\bnot\s+a\s+(good\s+)?match\s+(for|at)\s+this\s+time\b`,
	`\bwill\s+not\s+be\s+extending\s+an\s+offer\b`,
)

// Confirmation phrases that decide the category from the subject alone
var appliedSubjectPatterns = compile(
	`\b(thank\s+you|thanks)\s+for\s+(your\s+)?(applying|application)\b`,
	`\bapplication\s+(received|confirmed|submitted|confirmation)\b`,
	`\bwe('ve|\s+have)?\s+received\s+your\s+application\b`,
	`\byou('ve|\s+have)?\s+(successfully\s+)?applied\s+(for|to)\b`,
	`\byour\s+(application|submission)\s+(has\s+been|was)\s+(successfully\s+)?(received|submitted)\b`,
)

var appliedBodyPatterns = compile(
	`\b(thank\s+you|thanks)\s+for\s+(your\s+)?(applying|application|interest)\b`,
	`\bapplication\s+(received|confirmed|submitted|confirmation)\b`,
	`\bwe('ve|\s+have)?\s+received\s+your\s+(application|resume)\b`,
	`\bsuccessfully\s+(applied|submitted)\b`,
	`\byour\s+application\s+(for|to)\b`,
	`\byou('ve|\s+have)?\s+(successfully\s+)?applied\s+(for|to)\b`,
	`\bwe\s+will\s+(review|look\s+over)\s+your\s+(application|resume|materials)\b`,
	`\byour\s+(application|submission|resume)\s+(has\s+been|was)\s+(successfully\s+)?(received|submitted)\b`,
	`\bwe\s+appreciate\s+your\s+interest\s+(in|at)\b`,
)

var followUpPhrases = compile(
	`\bwanted\s+to\s+(follow\s+up|check\s+in)\b`,
	`\bfollow(ing)?[\s-]+up\b`,
	`\bcheck(ing)?\s+in\b`,
	`\btouching\s+base\b`,
	`\bcircling\s+back\b`,
)

// Status phrases already name the application, so they need no extra context
var followUpStatusPatterns = compile(
	`\bupdate\s+(on|regarding|about)\s+(your|my|the)\s+(application|candidacy|interview|status)\b`,
	`\bstatus\s+(update\s+on|of)\s+(your|my|the)\s+(application|candidacy|interview)\b`,
	`\byour\s+application\s+is\s+(still\s+)?(being|under)\s+(reviewed|review|consideration)\b`,
	`\bwe\s+are\s+still\s+(reviewing|processing)\s+your\s+(application|candidacy|resume|materials)\b`,
	`\b(any|an)\s+(update|news)\s+(on|about|regarding)\s+(your|the|my)\s+(application|candidacy|interview)\b`,
)

var directOutreachPatterns = compile(
	`\b(came|come)\s+across\s+your\s+(profile|resume|background|experience)\b`,
	`\b(found|saw|noticed)\s+your\s+(profile|resume|background)\s+(on|via|through)\b`,
	`\byour\s+(profile|resume|background|experience)\s+(caught|stood\s+out|got)\s+(my|our)\b`,
	`\b(reach(ing)?\s+out|contact(ing)?\s+you)\s+(about|regarding|for)\s+(an?|the)\s+([\w-]+\s+)?(opportunity|position|role|opening)\b`,
	`\b(have|got)\s+(an?|the)\s+(exciting|great|open|new)\s+(opportunity|position|role|opening)\s+(for|that)\b`,
	`\b(think|believe)\s+you\s+(would|could|might|'d)\s+be\s+(a\s+)?(great|good|strong|perfect)\s+(fit|match|candidate)\b`,
	`\b(would|will)\s+you\s+be\s+(interested|open)\s+(in|to)\s+(discuss|explor|hear|learn|chat)`,
	`\b(love|like)\s+to\s+(discuss|chat|talk|connect)\s+(about|with\s+you\s+about)\s+(a|an|the|this)\s+(role|position|opportunity)\b`,
	`\bi\s+am\s+(a|an)\s+(recruiter|talent|sourcer|headhunter)\b`,
	`\b(recruiter|sourcer|talent\s+acquisition)\s+(at|from|with)\s+\w`,
	`\b(on\s+behalf\s+of|representing)\s+.{1,40}(looking\s+for|hiring|seeking)\b`,
	`\b(wanted|want|hoping)\s+to\s+(see\s+if|gauge|check)\s+(you|your)\s+(interest|availability)\b`,
)

// Job-context vocabulary that disambiguates generic phrases
var jobContextPattern = regexp.MustCompile(
	`\b(applications?|applied|applying|candidacy|candidates?|positions?|roles?|interview(s|ed|ing)?|resume|recruit(er|ers|ing|ment)|hiring|job\s+openings?)\b`,
)

// Automated sender local parts and addresses
var automatedSenderPatterns = compile(
	`no[-_.]?reply`,
	`do[-_.]?not[-_.]?reply`,
	`mailer[-_.]?daemon`,
	`notifications?@`,
	`notify@`,
	`auto[-_.]?(reply|mailer|confirm)`,
	`automated`,
	`bounces?@`,
	`newsletters?@`,
	`digest@`,
	`marketing@`,
	`promo(tion)?s?@`,
	`^news@`,
	`^updates?@`,
	`announce(ment)?s?@`,
	`^info@`,
)

var bulkSubjectPatterns = compile(
	`^your\s+daily\s+digest`,
	`^your\s+weekly\s+(digest|summary|update)`,
	`^\d+\s+new\s+(notifications?|connections?|messages?|invitations?|endorsements?)`,
	`\bconnection\s+request\b`,
	`\bendorsed\s+you\b`,
	`\bskill\s+endorsement\b`,
	`\baccepted\s+your\s+(invitation|connection)\b`,
	`\bis\s+now\s+a\s+connection\b`,
	`\bpeople\s+you\s+may\s+know\b`,
	`\btrending\s+(in|on)\s+your\b`,
	`\bnewsletter\b`,
	`\bunsubscribe\b`,
	`\bsubscription\b`,
	`^(re:\s*)?order\s+(confirm|ship|deliver)`,
	`^(re:\s*)?receipt\s+(for|from)\b`,
	`^(re:\s*)?payment\s+(confirm|received)`,
	`^(re:\s*)?invoice\s+#`,
	`\bverify\s+your\s+(email|account)\b`,
	`\bpassword\s+(reset|change)\b`,
	`\btwo.factor\b|\b2fa\b|\bverification\s+code\b`,
	`\bsign.in\s+(attempt|alert)\b`,
)

// Metadata extraction runs on original casing.
const companyName = `([A-Z][\w&'-]*(?:\s+(?:&\s+)?[A-Z][\w&'-]*){0,3})`

var companyPatterns = compile(
	`\b(?i:applying|application|applied|interest|interviewing|interview|candidacy)\s+(?i:to|at|with|in)\s+`+companyName,
	`\b(?i:regarding|from|with|at|join)\s+`+companyName,
)

var senderCompanySuffix = regexp.MustCompile(
	`(?i)^(.+?)\s+(?:via\s+linkedin|via\s+indeed|careers|career\s+team|recruiting(?:\s+team)?|recruitment|talent(?:\s+acquisition)?(?:\s+team)?|hiring(?:\s+team)?|hr|jobs|people\s+team)$`,
)

const titleCapture = `([\w][\w /&+#-]{2,78}?)`
const titleEnd = `(?:\s+(?:at|with|in|position|role)\b|\s[-|–]\s|[.,;:!?()]|$)`

var jobTitlePatterns = compile(
	`(?i)\b(?:position|role|job|opening)\s*(?:of|for|:)\s+(?:the\s+|a\s+|an\s+)?`+titleCapture+titleEnd,
	`(?i)\bapplied\s+(?:for|to)\s+(?:the\s+|a\s+|an\s+)?`+titleCapture+titleEnd,
	`(?i)\bapplication\s+for\s+(?:the\s+|a\s+|an\s+)?`+titleCapture+titleEnd,
	`(?i)\binterview\s+for\s+(?:the\s+|a\s+|an\s+)?`+titleCapture+titleEnd,
	`(?i)\bthe\s+([\w][\w /&+#-]{2,60}?)\s+(?:position|role)\b`,
)

// Domain lists. Entries match subdomains too.

var defaultJobBoardDomains = []string{
	"indeed.com", "linkedin.com", "greenhouse.io", "lever.co",
	"myworkday.com", "myworkdayjobs.com", "workday.com",
	"smartrecruiters.com", "icims.com", "jobvite.com",
	"applytojob.com", "ashbyhq.com", "breezy.hr",
	"recruitee.com", "jazz.co", "jazzhr.com", "bamboohr.com",
	"taleo.net", "successfactors.com", "ultipro.com",
	"paylocity.com", "paycom.com", "adp.com",
	"dover.io", "rippling.com", "glassdoor.com",
	"ziprecruiter.com", "monster.com", "dice.com",
	"wellfound.com", "hirevue.com",
}

var defaultInterviewPlatformDomains = []string{
	"hirevue.com", "sparkhire.com", "hireflix.com", "karat.com", "pymetrics.com",
}

var defaultFreeMailDomains = []string{
	"gmail.com", "googlemail.com", "yahoo.com", "hotmail.com", "outlook.com",
	"live.com", "msn.com", "aol.com", "icloud.com", "me.com", "mac.com",
	"protonmail.com", "proton.me", "gmx.com", "gmx.net", "mail.com", "yandex.com",
}

// Marketing platforms, social networks and consumer services
var defaultBulkDomains = []string{
	"reddit.com", "redditmail.com", "quora.com", "discord.com", "slack.com",
	"medium.com", "substack.com", "stackoverflow.com", "stackexchange.com",
	"github.com", "meetup.com", "eventbrite.com", "facebookmail.com",
	"twitter.com", "x.com", "mailchimp.com", "mcsv.net", "sendgrid.net",
	"sendgrid.com", "constantcontact.com", "hubspot.com", "hubspotemail.net",
	"amazon.com", "paypal.com", "venmo.com", "uber.com", "doordash.com",
	"spotify.com", "netflix.com", "apple.com", "google.com",
}

// Second-level labels that sit under a two-letter country code, e.g. acme.co.uk
var secondLevelLabels = map[string]bool{
	"co": true, "com": true, "org": true, "net": true, "ac": true, "gov": true, "edu": true,
}
