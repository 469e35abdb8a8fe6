package formsync

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/playwright-community/playwright-go"

	"evler_migrator/models"
)

// Browser owns the playwright runtime and browser instance shared by
// a worker session. One live page is handed out per job.
type Browser struct {
	pw       *playwright.Playwright
	browser  playwright.Browser
	headless bool
}

func LaunchBrowser(headless bool) (*Browser, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	return &Browser{pw: pw, browser: browser, headless: headless}, nil
}

func (b *Browser) NewPage() (*LivePage, error) {
	page, err := b.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return &LivePage{page: page}, nil
}

func (b *Browser) Close() {
	if b.browser != nil {
		b.browser.Close()
	}
	if b.pw != nil {
		b.pw.Stop()
	}
}

// LivePage adapts a playwright page to the Page interface. All DOM
// manipulation runs inside the page so the site's jQuery handlers see
// the same events a human interaction would produce.
type LivePage struct {
	page playwright.Page
}

func (p *LivePage) Close() {
	p.page.Close()
}

func (p *LivePage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(60000),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

func (p *LivePage) URL() string {
	return p.page.URL()
}

func (p *LivePage) Content() (string, error) {
	return p.page.Content()
}

// OpenGallery switches a listing page to its photo tab and waits for
// the lazily rendered gallery markup to land in the DOM.
func (p *LivePage) OpenGallery(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.page.Evaluate(`() => { window.location.hash = "st"; }`); err != nil {
		return fmt.Errorf("open gallery tab: %w", err)
	}
	p.page.WaitForTimeout(1500)
	return nil
}

const discoverFieldsJS = `() => {
	const result = [];
	document.querySelectorAll("input, select, textarea").forEach((el) => {
		const field = {
			tag: el.tagName.toLowerCase(),
			type: el.type || "",
			name: el.name || "",
			id: el.id || "",
			required: el.required || false,
		};
		const label = el.closest("label") || document.querySelector('label[for="' + el.id + '"]');
		if (label) field.label = label.textContent.trim();
		if (el.tagName === "SELECT") {
			field.options = [];
			el.querySelectorAll("option").forEach((opt) => {
				field.options.push({ value: opt.value, text: opt.textContent.trim() });
			});
		}
		if (field.name || field.id) result.push(field);
	});
	return JSON.stringify(result);
}`

func (p *LivePage) DiscoverFields() ([]models.DiscoveredFormField, error) {
	raw, err := p.page.Evaluate(discoverFieldsJS)
	if err != nil {
		return nil, fmt.Errorf("enumerate fields: %w", err)
	}
	encoded, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("enumerate fields: unexpected result %T", raw)
	}
	var fields []models.DiscoveredFormField
	if err := json.Unmarshal([]byte(encoded), &fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return fields, nil
}

const typeIntoJS = `(arg) => {
	const el = document.querySelector('[name="' + arg.name + '"]');
	if (!el) return false;
	const setter = Object.getOwnPropertyDescriptor(window.HTMLInputElement.prototype, "value");
	if (setter && setter.set) setter.set.call(el, arg.value);
	else el.value = arg.value;
	el.dispatchEvent(new Event("focus", { bubbles: true }));
	el.dispatchEvent(new Event("input", { bubbles: true }));
	el.dispatchEvent(new Event("change", { bubbles: true }));
	el.dispatchEvent(new Event("blur", { bubbles: true }));
	if (typeof jQuery !== "undefined") jQuery(el).trigger("change").trigger("input");
	return true;
}`

func (p *LivePage) TypeInto(name, value string) error {
	selector := fmt.Sprintf(`[name=%q]`, name)
	// Type through the keyboard first so autoNumeric-style widgets
	// format the value, then force it through the native setter.
	loc := p.page.Locator(selector).First()
	if err := loc.Click(playwright.LocatorClickOptions{ClickCount: playwright.Int(3)}); err == nil {
		loc.PressSequentially(value, playwright.LocatorPressSequentiallyOptions{
			Delay: playwright.Float(30),
		})
	}
	ok, err := p.page.Evaluate(typeIntoJS, map[string]any{"name": name, "value": value})
	if err != nil {
		return fmt.Errorf("fill %s: %w", name, err)
	}
	if set, _ := ok.(bool); !set {
		return fmt.Errorf("fill %s: field not found", name)
	}
	return nil
}

const fillTextareaJS = `(arg) => {
	const el = document.querySelector('[name="' + arg.name + '"]');
	if (!el) return false;
	el.value = arg.value;
	el.dispatchEvent(new Event("input", { bubbles: true }));
	el.dispatchEvent(new Event("change", { bubbles: true }));
	return true;
}`

func (p *LivePage) FillTextarea(name, value string) error {
	ok, err := p.page.Evaluate(fillTextareaJS, map[string]any{"name": name, "value": value})
	if err != nil {
		return fmt.Errorf("fill textarea %s: %w", name, err)
	}
	if set, _ := ok.(bool); !set {
		return fmt.Errorf("fill textarea %s: field not found", name)
	}
	return nil
}

const selectValueJS = `(arg) => {
	const el = document.querySelector('select[name="' + arg.name + '"]');
	if (!el) return false;
	el.value = arg.value;
	el.dispatchEvent(new Event("change", { bubbles: true }));
	if (typeof jQuery !== "undefined") jQuery(el).val(arg.value).trigger("change");
	return true;
}`

func (p *LivePage) SelectValue(name, value string) error {
	ok, err := p.page.Evaluate(selectValueJS, map[string]any{"name": name, "value": value})
	if err != nil {
		return fmt.Errorf("select %s: %w", name, err)
	}
	if set, _ := ok.(bool); !set {
		return fmt.Errorf("select %s: field not found", name)
	}
	return nil
}

func (p *LivePage) SelectedValue(name string) (string, error) {
	raw, err := p.page.Evaluate(
		`(name) => { const el = document.querySelector('[name="' + name + '"]'); return el ? el.value : null; }`,
		name,
	)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	v, _ := raw.(string)
	return v, nil
}

const setRichTextJS = `(html) => {
	const editor = document.querySelector(".trumbowyg-editor") ||
		document.querySelector("[contenteditable='true']");
	if (!editor) return false;
	editor.innerHTML = html;
	editor.dispatchEvent(new Event("input", { bubbles: true }));
	return true;
}`

func (p *LivePage) SetRichText(html string) (bool, error) {
	raw, err := p.page.Evaluate(setRichTextJS, html)
	if err != nil {
		return false, fmt.Errorf("write editor: %w", err)
	}
	ok, _ := raw.(bool)
	return ok, nil
}

const ensureCheckedJS = `(name) => {
	const cb = document.querySelector('input[name="' + name + '"]');
	if (!cb) return false;
	cb.checked = true;
	cb.dispatchEvent(new Event("change", { bubbles: true }));
	cb.dispatchEvent(new Event("click", { bubbles: true }));
	cb.dispatchEvent(new Event("input", { bubbles: true }));
	if (typeof jQuery !== "undefined") jQuery(cb).prop("checked", true).trigger("change");
	if (!cb.checked) {
		const label = cb.closest("label") || document.querySelector('label[for="' + name + '"]');
		if (label) label.click();
	}
	return cb.checked;
}`

func (p *LivePage) EnsureChecked(name string) error {
	raw, err := p.page.Evaluate(ensureCheckedJS, name)
	if err != nil {
		return fmt.Errorf("check %s: %w", name, err)
	}
	if ok, _ := raw.(bool); !ok {
		return fmt.Errorf("check %s: checkbox not found or refused", name)
	}
	return nil
}

// uploadPhotoJS injects a photo via DataTransfer. File-chooser based
// upload hangs against the site's custom uploader plugin.
const uploadPhotoJS = `(arg) => {
	const input = document.querySelector('input[type="file"], input[name="files[]"]');
	if (!input) return "no file input found";
	const byteChars = atob(arg.base64);
	const chunks = [];
	for (let offset = 0; offset < byteChars.length; offset += 1024) {
		const slice = byteChars.slice(offset, offset + 1024);
		const bytes = new Uint8Array(slice.length);
		for (let j = 0; j < slice.length; j++) bytes[j] = slice.charCodeAt(j);
		chunks.push(bytes);
	}
	const blob = new Blob(chunks, { type: arg.mime });
	const file = new File([blob], arg.name, { type: arg.mime, lastModified: Date.now() });
	const dt = new DataTransfer();
	dt.items.add(file);
	input.files = dt.files;
	input.dispatchEvent(new Event("change", { bubbles: true }));
	input.dispatchEvent(new Event("input", { bubbles: true }));
	if (typeof jQuery !== "undefined") jQuery(input).trigger("change");
	return "";
}`

func (p *LivePage) UploadPhoto(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read photo: %w", err)
	}
	mime := "image/jpeg"
	if strings.EqualFold(filepath.Ext(path), ".png") {
		mime = "image/png"
	}
	raw, err := p.page.Evaluate(uploadPhotoJS, map[string]any{
		"base64": base64.StdEncoding.EncodeToString(data),
		"name":   filepath.Base(path),
		"mime":   mime,
	})
	if err != nil {
		return fmt.Errorf("inject photo: %w", err)
	}
	if msg, _ := raw.(string); msg != "" {
		return fmt.Errorf("inject photo: %s", msg)
	}
	return nil
}

const fireValidationJS = `() => {
	document.querySelectorAll("select, input, textarea").forEach((el) => {
		if (el.value && el.name && el.name !== "s") {
			el.dispatchEvent(new Event("change", { bubbles: true }));
			if (typeof jQuery !== "undefined") jQuery(el).trigger("change");
		}
	});
	document.querySelectorAll('input[name="s"]').forEach((el) => {
		el.removeAttribute("required");
	});
	document.body.click();
}`

func (p *LivePage) FireValidation() error {
	if _, err := p.page.Evaluate(fireValidationJS); err != nil {
		return fmt.Errorf("fire validation: %w", err)
	}
	return nil
}

const emptyRequiredJS = `() => {
	const empty = [];
	document.querySelectorAll("[required]").forEach((el) => {
		if (!el.value) empty.push(el.name || el.id || "unknown");
	});
	document.querySelectorAll("select").forEach((el) => {
		if (el.name && el.name !== "s" && (el.value === "" || el.value === "0")) {
			empty.push(el.name);
		}
	});
	return JSON.stringify(empty);
}`

func (p *LivePage) EmptyRequiredFields() ([]string, error) {
	raw, err := p.page.Evaluate(emptyRequiredJS)
	if err != nil {
		return nil, fmt.Errorf("check required fields: %w", err)
	}
	encoded, _ := raw.(string)
	var names []string
	if err := json.Unmarshal([]byte(encoded), &names); err != nil {
		return nil, fmt.Errorf("decode required fields: %w", err)
	}
	return names, nil
}

const submitButtonJS = `() => {
	const btn = document.querySelector('#buton, button[name="buton"]');
	if (!btn) return "missing";
	return btn.disabled ? "disabled" : "enabled";
}`

func (p *LivePage) SubmitEnabled() (bool, error) {
	raw, err := p.page.Evaluate(submitButtonJS)
	if err != nil {
		return false, fmt.Errorf("inspect submit button: %w", err)
	}
	state, _ := raw.(string)
	if state == "missing" {
		return false, fmt.Errorf("submit button not found")
	}
	return state == "enabled", nil
}

const forceEnableJS = `() => {
	const btn = document.querySelector('#buton, button[name="buton"]');
	if (!btn) return false;
	btn.removeAttribute("disabled");
	btn.disabled = false;
	if (typeof jQuery !== "undefined") jQuery(btn).prop("disabled", false).removeAttr("disabled");
	return true;
}`

func (p *LivePage) ForceEnableSubmit() error {
	raw, err := p.page.Evaluate(forceEnableJS)
	if err != nil {
		return fmt.Errorf("enable submit button: %w", err)
	}
	if ok, _ := raw.(bool); !ok {
		return fmt.Errorf("submit button not found")
	}
	return nil
}

// clickSubmitJS clicks the submit button of the listing form, which is
// identified by carrying the title or price field. The page may host
// other forms such as the search bar.
const clickSubmitJS = `() => {
	const forms = document.querySelectorAll("form");
	for (const form of forms) {
		if (form.querySelector('[name="baslik"]') || form.querySelector('[name="fiyat"]')) {
			const btn = form.querySelector('#buton, button[name="buton"], button[type="submit"]');
			if (btn) { btn.click(); return true; }
		}
	}
	return false;
}`

func (p *LivePage) ClickSubmit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := p.page.Evaluate(clickSubmitJS)
	if err != nil {
		return fmt.Errorf("click submit: %w", err)
	}
	if ok, _ := raw.(bool); !ok {
		return fmt.Errorf("no submit button inside listing form")
	}
	p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(60000),
	})
	return nil
}

const errorMessagesJS = `() => {
	const errors = [];
	const push = (text) => {
		if (text && text.length > 2 && !errors.includes(text)) errors.push(text);
	};
	document.querySelectorAll(".alert-danger, .alert-warning, .error, .hata, [class*='error'], [class*='uyari'], .text-danger, .invalid-feedback").forEach((el) => {
		push(el.textContent.trim());
	});
	document.querySelectorAll(":invalid").forEach((el) => {
		if (el.validationMessage) push((el.name || el.id || "unknown") + ": " + el.validationMessage);
	});
	document.querySelectorAll("[required]").forEach((el) => {
		if (!el.value) push("empty required: " + (el.name || el.id || "unknown"));
	});
	return JSON.stringify(errors);
}`

func (p *LivePage) ErrorMessages() ([]string, error) {
	raw, err := p.page.Evaluate(errorMessagesJS)
	if err != nil {
		return nil, fmt.Errorf("collect page errors: %w", err)
	}
	encoded, _ := raw.(string)
	var msgs []string
	if err := json.Unmarshal([]byte(encoded), &msgs); err != nil {
		return nil, fmt.Errorf("decode page errors: %w", err)
	}
	return msgs, nil
}

func (p *LivePage) ListingLink() (string, error) {
	raw, err := p.page.Evaluate(`() => { const a = document.querySelector('a[href*="ilan/"]'); return a ? a.href : ""; }`)
	if err != nil {
		return "", fmt.Errorf("find listing link: %w", err)
	}
	link, _ := raw.(string)
	return link, nil
}

func (p *LivePage) ClickButton(name string) error {
	selector := fmt.Sprintf(`button[name=%q]`, name)
	btn := p.page.Locator(selector).First()
	if err := btn.Click(); err != nil {
		return fmt.Errorf("click %s: %w", name, err)
	}
	p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(30000),
	})
	return nil
}
