package scraper

// replaceNamesScript is called with the name mapping and the observed
// container selector, it returns the label texts after replacement
const replaceNamesScript = `(mapping, container) => {
  const labels = () => document.querySelectorAll('.weather-forecast-name');
  const swap = () => {
    labels().forEach(el => {
      const source = (el.dataset.jpName || el.textContent).trim();
      el.dataset.jpName = source;
      const target = mapping[source];
      if (target && el.textContent.trim() !== target) {
        el.textContent = target;
      }
    });
  };
  swap();

  const root = document.querySelector(container);
  if (root && !root.__nameObserver) {
    const observer = new MutationObserver(swap);
    observer.observe(root, {childList: true, subtree: true, characterData: true});
    root.__nameObserver = observer;
  }

  return Array.from(labels()).map(el => el.textContent.trim());
}`

const labelNamesScript = `Array.from(document.querySelectorAll('.weather-forecast-name')).map(el => el.textContent.trim())`

// addStyleScript is called with the stylesheet text
const addStyleScript = `(css) => {
  const style = document.createElement('style');
  style.textContent = css;
  document.head.appendChild(style);
  return true;
}`

// labelStyle keeps Cyrillic labels readable on the map
const labelStyle = `
.weather-forecast-name {
  font-family: 'Inter', 'Roboto', 'Arial', sans-serif !important;
  font-weight: 600 !important;
  font-size: 12px !important;
  line-height: 1.1 !important;
  letter-spacing: 0 !important;
  text-shadow: 0 0 2px #fff;
}
`
